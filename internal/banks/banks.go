// Package banks links users to their bank aggregator items, keeps access
// tokens sealed at rest and applies the aggregator's webhooks.
package banks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/vault"
)

// Audit actions.
const (
	ActionTokenEncrypt = "bank_token.encrypt"
	ActionTokenDecrypt = "bank_token.decrypt"
	ActionConnect      = "bank.connect"
	ActionWebhook      = "bank.webhook"
)

// Store is the data access banks needs.
type Store interface {
	InsertBankConnection(ctx context.Context, c *model.BankConnection) error
	BankConnectionByItem(ctx context.Context, itemID string) (model.BankConnection, error)
	ListBankConnections(ctx context.Context, userID string) ([]model.BankConnection, error)
	UpdateConnectionSync(ctx context.Context, itemID, status string, syncedAt time.Time) error
	UpsertBankTransactions(ctx context.Context, txs []model.Transaction) (int, error)
	DeleteBankTransactions(ctx context.Context, userID string, externalIDs []string) (int, error)
	Audit(ctx context.Context, userID, action, detail, remoteIP string) error
}

// Service handles bank tokens, connections and webhooks.
type Service struct {
	store Store
	vault *vault.Vault
	now   func() time.Time
}

// New returns a Service. v may be nil when no token key is configured;
// token operations then fail with vault.ErrNoKey.
func New(st Store, v *vault.Vault) *Service {
	return &Service{store: st, vault: v, now: time.Now}
}

// EncryptToken seals an access token.
func (s *Service) EncryptToken(ctx context.Context, userID, token, remoteIP string) (string, error) {
	if s.vault == nil {
		return "", vault.ErrNoKey
	}
	if strings.TrimSpace(token) == "" {
		return "", fieldError("token", "is required")
	}
	enc, err := s.vault.Encrypt(token)
	if err != nil {
		return "", err
	}
	if err := s.store.Audit(ctx, userID, ActionTokenEncrypt, "", remoteIP); err != nil {
		return "", err
	}
	return enc, nil
}

// DecryptToken opens a sealed token and records the access in the
// security audit log.
func (s *Service) DecryptToken(ctx context.Context, userID, encrypted, remoteIP string) (string, error) {
	if s.vault == nil {
		return "", vault.ErrNoKey
	}
	plain, err := s.vault.Decrypt(encrypted)
	if err != nil {
		if errors.Is(err, vault.ErrMalformed) {
			return "", fieldError("encrypted", "is not a sealed token")
		}
		return "", fieldError("encrypted", "could not be decrypted with the configured key")
	}
	if err := s.store.Audit(ctx, userID, ActionTokenDecrypt, "", remoteIP); err != nil {
		return "", err
	}
	return plain, nil
}

// ConnectRequest links a new aggregator item.
type ConnectRequest struct {
	Institution string `json:"institution"`
	ItemID      string `json:"item_id"`
	AccessToken string `json:"access_token"`
}

// Connect stores a new connection with its token sealed.
func (s *Service) Connect(ctx context.Context, userID string, req ConnectRequest, remoteIP string) (model.BankConnection, error) {
	v := &model.ValidationError{}
	if strings.TrimSpace(req.Institution) == "" {
		v.Add("institution", "is required")
	}
	if strings.TrimSpace(req.ItemID) == "" {
		v.Add("item_id", "is required")
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		v.Add("access_token", "is required")
	}
	if err := v.OrNil(); err != nil {
		return model.BankConnection{}, err
	}
	if s.vault == nil {
		return model.BankConnection{}, vault.ErrNoKey
	}
	enc, err := s.vault.Encrypt(req.AccessToken)
	if err != nil {
		return model.BankConnection{}, err
	}
	c := model.BankConnection{
		UserID:         userID,
		Institution:    strings.TrimSpace(req.Institution),
		ItemID:         strings.TrimSpace(req.ItemID),
		AccessTokenEnc: enc,
	}
	if err := s.store.InsertBankConnection(ctx, &c); err != nil {
		return model.BankConnection{}, err
	}
	if err := s.store.Audit(ctx, userID, ActionConnect, c.Institution, remoteIP); err != nil {
		return model.BankConnection{}, err
	}
	return c, nil
}

// Connections lists a user's connections. Tokens are never serialized.
func (s *Service) Connections(ctx context.Context, userID string) ([]model.BankConnection, error) {
	return s.store.ListBankConnections(ctx, userID)
}

func fieldError(field, msg string) error {
	v := &model.ValidationError{}
	v.Add(field, msg)
	return v
}

