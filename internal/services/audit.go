package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
	"github.com/AnshRaj112/propertyhub-backend/pkg/utils"
)

const auditCollection = "auth_events"

const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionResetPassword  = "reset_password"
	ActionUpdatePassword = "update_password"
)

// AuthEvent is one entry of the authentication audit trail.
type AuthEvent struct {
	Action string `bson:"action"`
	Email  string `bson:"email,omitempty"`
	// EmailKey is the fingerprint of the normalized email, so entries stay searchable when Email is encrypted.
	EmailKey  string    `bson:"email_key,omitempty"`
	UserID    string    `bson:"user_id,omitempty"`
	Success   bool      `bson:"success"`
	Reason    string    `bson:"reason,omitempty"`
	IP        string    `bson:"ip,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

// AuditLog records auth events. Implementations must not block the request.
type AuditLog interface {
	Record(ctx context.Context, event AuthEvent)
}

// NopAuditLog is used when no audit store is configured.
type NopAuditLog struct{}

func (NopAuditLog) Record(context.Context, AuthEvent) {}

type MongoAuditLog struct {
	col    *mongo.Collection
	cipher *utils.Cipher
	logger log.Logger
}

// NewMongoAuditLog stores events in the auth_events collection. With a non-nil
// cipher, emails are written encrypted.
func NewMongoAuditLog(db *mongo.Database, cipher *utils.Cipher, logger log.Logger) *MongoAuditLog {
	return &MongoAuditLog{col: db.Collection(auditCollection), cipher: cipher, logger: logger}
}

// EnsureIndexes is called once at startup after Mongo has connected.
func (a *MongoAuditLog) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_key", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_email_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "action", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_action_timestamp"),
		},
	}
	_, err := a.col.Indexes().CreateMany(ctx, models)
	return err
}

// Record persists the event asynchronously; failures are only logged.
func (a *MongoAuditLog) Record(_ context.Context, event AuthEvent) {
	event, err := sealEvent(event, a.cipher)
	if err != nil {
		a.logger.Warn().Err(err).Str("action", event.Action).Msg("audit event not stored")
		return
	}
	go func(e AuthEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := a.col.InsertOne(ctx, e); err != nil {
			a.logger.Warn().Err(err).Str("action", e.Action).Msg("audit event not stored")
		}
	}(event)
}

// sealEvent fills the timestamp and email key and encrypts the email when a cipher is set.
func sealEvent(event AuthEvent, cipher *utils.Cipher) (AuthEvent, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Email == "" {
		return event, nil
	}
	event.EmailKey = emailKey(event.Email)
	if cipher != nil {
		sealed, err := cipher.Encrypt(event.Email)
		if err != nil {
			return event, err
		}
		event.Email = sealed
	}
	return event, nil
}

// Recent returns the latest events for an email, newest first, with emails decrypted.
func (a *MongoAuditLog) Recent(ctx context.Context, email string, limit int64) ([]AuthEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cur, err := a.col.Find(ctx, bson.M{"email_key": emailKey(email)}, opts)
	if err != nil {
		return nil, err
	}
	var events []AuthEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	for i := range events {
		if events[i], err = openEvent(events[i], a.cipher); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// openEvent reverses sealEvent. Entries written before a key was configured hold
// the plain address and are returned as is.
func openEvent(event AuthEvent, cipher *utils.Cipher) (AuthEvent, error) {
	if cipher == nil || event.Email == "" || strings.Contains(event.Email, "@") {
		return event, nil
	}
	plain, err := cipher.Decrypt(event.Email)
	if err != nil {
		return event, err
	}
	event.Email = plain
	return event, nil
}

func emailKey(email string) string {
	return Fingerprint(strings.ToLower(strings.TrimSpace(email)))
}

type clientIPKey struct{}

// WithClientIP attaches the caller's address for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
