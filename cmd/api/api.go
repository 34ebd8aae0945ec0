package api

import (
	"log"
	"net/http"

	"github.com/cit-coders/clubhub-server/service/announcement"
	"github.com/cit-coders/clubhub-server/service/blog"
	"github.com/cit-coders/clubhub-server/service/calendar"
	"github.com/cit-coders/clubhub-server/service/dashboard"
	"github.com/cit-coders/clubhub-server/service/live"
	"github.com/cit-coders/clubhub-server/service/movie"
	"github.com/cit-coders/clubhub-server/service/news"
	"github.com/cit-coders/clubhub-server/service/notification"
	"github.com/cit-coders/clubhub-server/service/quiz"
	"github.com/cit-coders/clubhub-server/service/suggestion"
	"github.com/cit-coders/clubhub-server/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	feed := live.NewHub()
	feed.RegisterRoutes(router)

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	blogHandler := blog.NewBlogHandler(s.db, feed)
	blogHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	announcementHandler := announcement.NewAnnouncementHandler(s.db, notificationHandler, feed)
	announcementHandler.RegisterRoutes(subrouter)

	quizHandler := quiz.NewQuizHandler(s.db)
	quizHandler.RegisterRoutes(subrouter)

	newsHandler := news.NewNewsHandler(s.db)
	newsHandler.RegisterRoutes(subrouter)

	movieHandler := movie.NewMovieHandler(s.db)
	movieHandler.RegisterRoutes(subrouter)

	suggestionHandler := suggestion.NewSuggestionHandler(s.db)
	suggestionHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	calendarHandler := calendar.NewCalendarHandler(s.db)
	calendarHandler.RegisterRoutes(router.PathPrefix("/api").Subrouter())

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}
