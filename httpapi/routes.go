package httpapi

// registerRoutes wires every API endpoint to its handler.
func (s *Server) registerRoutes() {
	// Probes
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/chat/health", s.handleChatHealth).Methods("GET")
	s.router.HandleFunc("/analytics", s.handleAnalytics).Methods("GET")

	// Demo authentication
	s.router.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	s.router.HandleFunc("/auth/register", s.handleLogin).Methods("POST")

	// Tasks
	tasks := s.router.PathPrefix("/tasks").Subrouter()
	tasks.Use(s.requireAuth)
	tasks.HandleFunc("", s.handleCreateTask).Methods("POST")
	tasks.HandleFunc("", s.handleListTasks).Methods("GET")
	tasks.HandleFunc("/{id}", s.handleGetTask).Methods("GET")
	tasks.HandleFunc("/{id}", s.handleUpdateTask).Methods("PUT")
	tasks.HandleFunc("/{id}", s.handleDeleteTask).Methods("DELETE")
	tasks.HandleFunc("/{id}/toggle", s.handleToggleTask).Methods("PATCH")

	// Chat
	chatRouter := s.router.PathPrefix("/api/chat").Subrouter()
	chatRouter.Use(s.requireAuth)
	chatRouter.HandleFunc("", s.handleChat).Methods("POST")

	// Conversations
	convs := s.router.PathPrefix("/api/conversations").Subrouter()
	convs.Use(s.requireAuth)
	convs.HandleFunc("", s.handleListConversations).Methods("GET")
	convs.HandleFunc("/{id}", s.handleGetConversation).Methods("GET")
	convs.HandleFunc("/{id}", s.handleDeleteConversation).Methods("DELETE")
	convs.HandleFunc("/{id}/title", s.handleRenameConversation).Methods("PATCH")
}
