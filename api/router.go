package api

import (
	"net/http"

	"go.uber.org/zap"

	"swaphands/auth"
	"swaphands/listing"
	"swaphands/lostfound"
	"swaphands/message"
)

// Services bundles the domain services the router wires handlers to.
type Services struct {
	Auth      *auth.Service
	Listings  *listing.Service
	Messages  *message.Service
	LostFound *lostfound.Service
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svcs Services, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Service: svcs.Auth}
	listingsHandler := &ListingsHandler{Service: svcs.Listings}
	messagesHandler := &MessagesHandler{Service: svcs.Messages}
	lostFoundHandler := &LostFoundHandler{Service: svcs.LostFound, Logger: logger}

	authMW := AuthMiddleware(svcs.Auth)

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Profile.
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))

	// Marketplace listings.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(listingsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(listingsHandler.Create)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(listingsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(listingsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(listingsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/sold", authMW(http.HandlerFunc(listingsHandler.MarkSold)))

	// Wishlist.
	mux.Handle("GET /api/wishlist", authMW(http.HandlerFunc(listingsHandler.Wishlist)))
	mux.Handle("POST /api/wishlist/{itemId}", authMW(http.HandlerFunc(listingsHandler.AddWishlist)))
	mux.Handle("DELETE /api/wishlist/{itemId}", authMW(http.HandlerFunc(listingsHandler.RemoveWishlist)))

	// Messaging.
	mux.Handle("GET /api/items/{id}/messages", authMW(http.HandlerFunc(messagesHandler.Thread)))
	mux.Handle("POST /api/items/{id}/messages", authMW(http.HandlerFunc(messagesHandler.Send)))
	mux.Handle("GET /api/conversations", authMW(http.HandlerFunc(messagesHandler.Conversations)))

	// Lost & found: items are posted by admins, browsed by everyone.
	mux.Handle("GET /api/lostfound", authMW(http.HandlerFunc(lostFoundHandler.ListItems)))
	mux.Handle("POST /api/lostfound", authMW(RequireAdmin(http.HandlerFunc(lostFoundHandler.CreateItem))))
	mux.Handle("GET /api/lostfound/{id}", authMW(http.HandlerFunc(lostFoundHandler.GetItem)))

	// Claims: students submit, admins adjudicate.
	mux.Handle("POST /api/claims", authMW(http.HandlerFunc(lostFoundHandler.SubmitClaim)))
	mux.Handle("GET /api/claims", authMW(http.HandlerFunc(lostFoundHandler.ListClaims)))
	mux.Handle("PUT /api/claims/{id}/approve", authMW(RequireAdmin(http.HandlerFunc(lostFoundHandler.ApproveClaim))))
	mux.Handle("PUT /api/claims/{id}/reject", authMW(RequireAdmin(http.HandlerFunc(lostFoundHandler.RejectClaim))))

	return LoggingMiddleware(logger)(mux)
}
