package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"leaselane/pkg/httpx"
	"leaselane/pkg/signing"
	"leaselane/services/payout/internal/bank"
)

func main() {
	_ = godotenv.Load()

	var cfg bank.Config
	if path := strings.TrimSpace(os.Getenv("PAYOUT_ACCOUNTS_FILE")); path != "" {
		loaded, err := bank.LoadConfig(path)
		if err != nil {
			log.Fatalf("accounts file: %v", err)
		}
		cfg = loaded
	}
	b := bank.New(cfg)
	secret := strings.TrimSpace(os.Getenv("PAYOUT_SHARED_SECRET"))

	port := strings.TrimSpace(os.Getenv("SERVICE_PORT"))
	if port == "" {
		port = "8092"
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Route("/payout/v1", func(api chi.Router) {
		api.Post("/transfers", func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				httpx.WriteError(w, 400, "BAD_REQUEST", "unreadable body", nil)
				return
			}
			if secret != "" {
				if err := signing.Verify(r.Header, raw, secret); err != nil {
					httpx.WriteError(w, 401, "BAD_SIGNATURE", err.Error(), nil)
					return
				}
			}
			var req struct {
				TransferID string `json:"transfer_id"`
				ToAccount  string `json:"to_account"`
				Amount     int64  `json:"amount"`
			}
			if err := json.Unmarshal(raw, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			if strings.TrimSpace(req.ToAccount) == "" {
				httpx.WriteError(w, 400, "BAD_REQUEST", "to_account is required", nil)
				return
			}
			switch err := b.Deliver(req.TransferID, req.ToAccount, req.Amount); {
			case err == nil:
				httpx.WriteJSON(w, 200, map[string]any{
					"request_id":  httpx.NewRequestID(),
					"transfer_id": req.TransferID,
					"delivered":   true,
				})
			case err == bank.ErrBadAmount:
				httpx.WriteError(w, 400, "BAD_AMOUNT", err.Error(), nil)
			default:
				httpx.WriteError(w, 422, "UNDELIVERABLE", err.Error(), nil)
			}
		})

		api.Get("/accounts/{account_id}", func(w http.ResponseWriter, r *http.Request) {
			accountID := chi.URLParam(r, "account_id")
			balance, ok := b.Balance(accountID)
			if !ok {
				httpx.WriteError(w, 404, "NOT_FOUND", "account has no delivery history", nil)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{
				"request_id": httpx.NewRequestID(),
				"account":    map[string]any{"id": accountID, "balance": balance},
			})
		})
	})

	log.Printf("payout gateway listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
