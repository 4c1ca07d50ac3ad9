package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/auth"
	eventskafka "github.com/sheikh-saqib/crosschain-accrual-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/gateway"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/ledger"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
	relaykafka "github.com/sheikh-saqib/crosschain-accrual-ledger/internal/relay/kafka"
	badgerstore "github.com/sheikh-saqib/crosschain-accrual-ledger/internal/storage/badger"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/vault"
)

// One process serves one domain: its ledger, its vault and its gateway.
// Cross-domain lanes are Kafka topics shared with the paired domains.
func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	domain := envOr("LEDGER_DOMAIN", "domain-a")
	token := envOr("LEDGER_TOKEN", "accrual-token")
	admin := envOr("LEDGER_ADMIN", "admin")
	httpAddr := envOr("HTTP_ADDR", ":8080")

	initialRate, err := decimal.NewFromString(envOr("LEDGER_INITIAL_RATE", "50000000000"))
	if err != nil {
		log.WithError(err).Fatal("invalid LEDGER_INITIAL_RATE")
	}

	ctx := context.Background()

	store, cleanup, err := buildStore(ctx)
	if err != nil {
		log.WithError(err).Fatal("build account store")
	}
	defer cleanup()

	vaultID := "vault@" + domain
	gatewayID := "gateway@" + domain
	clearing := "clearing@" + domain

	authority := auth.NewAuthority(admin)
	if err := authority.GrantMintBurn(admin, vaultID); err != nil {
		log.WithError(err).Fatal("grant vault capability")
	}
	if err := authority.GrantMintBurn(admin, gatewayID); err != nil {
		log.WithError(err).Fatal("grant gateway capability")
	}

	brokers := splitList(os.Getenv("KAFKA_BROKERS"))

	var events interfaces.EventPublisher
	if len(brokers) > 0 {
		publisher := eventskafka.NewPublisher(brokers)
		defer publisher.Close()
		events = publisher
	}

	ledgerService, err := ledger.NewLedger(ctx, ledger.Config{
		Domain:            domain,
		Store:             store,
		Authority:         authority,
		Events:            events,
		InitialGlobalRate: initialRate,
	})
	if err != nil {
		log.WithError(err).Fatal("create ledger")
	}

	assetPool := vault.NewMemoryAssetPool(parseSeed(os.Getenv("ASSET_SEED"), log))
	vaultService := vault.NewVault(vaultID, ledgerService, assetPool)

	lanes := parseLanes(os.Getenv("REMOTE_LANES"))
	policy := gateway.NewLanePolicy(domain, token, lanes)

	var gatewayService *gateway.Gateway
	if len(brokers) > 0 && len(lanes) > 0 {
		relay := relaykafka.NewRelay(brokers)
		defer relay.Close()

		gatewayService, err = gateway.NewGateway(gateway.Config{
			Domain:   domain,
			Identity: gatewayID,
			Clearing: clearing,
			Ledger:   ledgerService,
			Store:    store,
			Relay:    relay,
			Policy:   policy,
			Events:   events,
		})
		if err != nil {
			log.WithError(err).Fatal("create gateway")
		}

		// One consumer per inbound lane.
		for _, lane := range lanes {
			consumer := relaykafka.NewConsumer(brokers, lane.Domain, domain, gatewayService, log)
			go func(c *relaykafka.Consumer) {
				defer c.Close()
				if err := c.Run(ctx); err != nil {
					log.WithError(err).Fatal("relay consumer stopped")
				}
			}(consumer)
		}
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		accountQuery(w, r, ledgerService.BalanceOf)
	})

	http.HandleFunc("/accounts/principal", func(w http.ResponseWriter, r *http.Request) {
		accountQuery(w, r, ledgerService.PrincipalOf)
	})

	http.HandleFunc("/accounts/rate", func(w http.ResponseWriter, r *http.Request) {
		accountQuery(w, r, ledgerService.UserRate)
	})

	http.HandleFunc("/rate", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"global_rate": ledgerService.GlobalRate()})
		case http.MethodPost:
			var req struct {
				Caller string          `json:"caller"`
				Rate   decimal.Decimal `json:"rate"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := ledgerService.SetGlobalRate(r.Context(), req.Caller, req.Rate); err != nil {
				writeLedgerError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "rate updated"})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/grants", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, authority.GrantLog())
		case http.MethodPost:
			var req struct {
				Caller  string `json:"caller"`
				Grantee string `json:"grantee"`
				Revoke  bool   `json:"revoke"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			var err error
			if req.Revoke {
				err = authority.RevokeMintBurn(req.Caller, req.Grantee)
			} else {
				err = authority.GrantMintBurn(req.Caller, req.Grantee)
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{"status": "grant recorded"})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Holder string          `json:"holder"`
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := vaultService.Deposit(r.Context(), req.Holder, req.Amount); err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "deposited"})
	})

	http.HandleFunc("/redeem", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Holder string          `json:"holder"`
			Amount decimal.Decimal `json:"amount"` // -1 redeems the full live balance
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		paid, err := vaultService.Redeem(r.Context(), req.Holder, req.Amount)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"redeemed": paid})
	})

	http.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			FromAccount string          `json:"from_account"`
			ToAccount   string          `json:"to_account"`
			Amount      decimal.Decimal `json:"amount"` // -1 moves the full live balance
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := ledgerService.Transfer(r.Context(), req.FromAccount, req.ToAccount, req.Amount); err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "transferred"})
	})

	http.HandleFunc("/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if gatewayService == nil {
			http.Error(w, "cross-domain transfers are not configured", http.StatusServiceUnavailable)
			return
		}
		var req struct {
			Sender     string          `json:"sender"`
			Receiver   string          `json:"receiver"`
			Amount     decimal.Decimal `json:"amount"`
			DestDomain string          `json:"dest_domain"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		msg, err := initiateTransfer(r.Context(), ledgerService, gatewayService, req.Sender, req.Receiver, req.Amount, req.DestDomain, log)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "transfer initiated", "message_id": msg.MessageID})
	})

	http.HandleFunc("/ledgerEntries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		entries, err := ledgerService.Entries(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	log.WithFields(logrus.Fields{"domain": domain, "addr": httpAddr}).Info("starting server")
	log.Fatal(http.ListenAndServe(httpAddr, nil))
}

// initiateTransfer stages the tokens in the gateway's clearing account and
// runs the outbound leg, undoing the staging if the leg is rejected. The
// max sentinel is resolved to the sender's live balance before staging so
// the staged and burned amounts agree.
func initiateTransfer(ctx context.Context, l *ledger.Ledger, gw *gateway.Gateway, sender, receiver string, amount decimal.Decimal, destDomain string, log *logrus.Logger) (models.TransferMessage, error) {
	if amount.Equal(models.MaxAmount) {
		live, err := l.BalanceOf(ctx, sender)
		if err != nil {
			return models.TransferMessage{}, err
		}
		amount = live
	}
	if err := l.Transfer(ctx, sender, gw.Clearing(), amount); err != nil {
		return models.TransferMessage{}, err
	}
	msg, err := gw.LockOrBurn(ctx, gateway.OutboundRequest{
		Sender:     sender,
		Receiver:   receiver,
		Amount:     amount,
		DestDomain: destDomain,
	})
	if err != nil {
		if restoreErr := l.Transfer(ctx, gw.Clearing(), sender, amount); restoreErr != nil {
			log.WithError(restoreErr).WithField("sender", sender).Error("failed to unstage clearing tokens")
		}
		return models.TransferMessage{}, err
	}
	return msg, nil
}

func buildStore(ctx context.Context) (interfaces.AccountStore, func(), error) {
	switch envOr("LEDGER_STORE", "memory") {
	case "postgres":
		db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewAccountStore(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	case "badger":
		store, err := badgerstore.NewAccountStore(os.Getenv("BADGER_PATH"))
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return memory.NewAccountStore(), func() {}, nil
	}
}

func accountQuery(w http.ResponseWriter, r *http.Request, read func(context.Context, string) (decimal.Decimal, error)) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
		return
	}
	value, err := read(r.Context(), accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		AccountID string          `json:"account_id"`
		Value     decimal.Decimal `json:"value"`
	}{AccountID: accountID, Value: value})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsUnauthorized(err):
		http.Error(w, err.Error(), http.StatusForbidden)
	case ledger.IsRateIncreaseRejected(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case ledger.IsInsufficientBalance(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case gateway.IsValidationFailed(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case vault.IsTransferFailed(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseLanes reads REMOTE_LANES entries of the form "domain=destToken".
func parseLanes(raw string) []gateway.Lane {
	var lanes []gateway.Lane
	for _, item := range splitList(raw) {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		lanes = append(lanes, gateway.Lane{Domain: parts[0], DestToken: parts[1]})
	}
	return lanes
}

// parseSeed reads ASSET_SEED entries of the form "holder=amount".
func parseSeed(raw string, log *logrus.Logger) map[string]decimal.Decimal {
	seed := make(map[string]decimal.Decimal)
	for _, item := range splitList(raw) {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		amount, err := decimal.NewFromString(parts[1])
		if err != nil {
			log.WithField("entry", item).Warn("skipping invalid ASSET_SEED entry")
			continue
		}
		seed[parts[0]] = amount
	}
	return seed
}
