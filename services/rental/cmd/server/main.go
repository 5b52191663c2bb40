package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"leaselane/pkg/db"
	"leaselane/services/rental/internal/agreements"
	"leaselane/services/rental/internal/payoutclient"
	"leaselane/services/rental/internal/stream"
)

func main() {
	_ = godotenv.Load()

	pool := db.MustConnect()
	st := agreements.NewStore(pool)
	if err := st.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("schema: %v", err)
	}

	port := strings.TrimSpace(os.Getenv("SERVICE_PORT"))
	if port == "" {
		port = "8091"
	}
	payoutBase := strings.TrimSpace(os.Getenv("PAYOUT_BASE_URL"))
	if payoutBase == "" {
		payoutBase = "http://localhost:8092"
	}
	payoutSecret := strings.TrimSpace(os.Getenv("PAYOUT_SHARED_SECRET"))

	hub := stream.NewHub()
	h := &agreements.Handler{
		Store:  st,
		Bank:   payoutclient.New(payoutBase, payoutSecret),
		Notify: hub.Publish,
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Route("/rental/v1", func(api chi.Router) {
		h.Routes(api)
		api.Get("/agreements/{agreement_id}/events/stream", hub.Handler(func(r *http.Request) string {
			return chi.URLParam(r, "agreement_id")
		}))
	})

	log.Printf("rental service listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
