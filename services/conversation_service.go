package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"floordesign/models"
)

// ConversationService stores the buyer/admin chat threads, one per buyer.
type ConversationService interface {
	Get(ctx context.Context, userID string) (models.Conversation, error)
	Append(ctx context.Context, userID string, req models.PostMessageRequest) (models.Conversation, error)
	ListContacts(ctx context.Context) ([]models.Contact, error)
	Count(ctx context.Context) (int, error)
}

type conversationService struct {
	db SQLExecutor
}

// NewConversationService creates a ConversationService over db.
func NewConversationService(db SQLExecutor) ConversationService {
	return &conversationService{db: db}
}

// Get returns the user's thread, creating an empty one on first access.
func (s *conversationService) Get(ctx context.Context, userID string) (models.Conversation, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return models.Conversation{}, err
	}
	return s.load(ctx, userID)
}

func (s *conversationService) Append(ctx context.Context, userID string, req models.PostMessageRequest) (models.Conversation, error) {
	content := strings.TrimSpace(req.Content)
	if req.Sender == "" || content == "" {
		return models.Conversation{}, invalid("Données manquantes")
	}
	if req.Sender != models.SenderAdmin && req.Sender != models.SenderUser {
		return models.Conversation{}, invalid("Expéditeur invalide")
	}

	if err := s.ensure(ctx, userID); err != nil {
		return models.Conversation{}, err
	}

	ts := now()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, user_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), userID, req.Sender, content, ts,
	)
	if err != nil {
		return models.Conversation{}, errors.Wrap(err, "insert message")
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE conversations SET last_updated = ? WHERE user_id = ?", ts, userID); err != nil {
		return models.Conversation{}, err
	}

	return s.load(ctx, userID)
}

// ListContacts lists buyers for the admin inbox: those with a thread first,
// most recently active first, then the rest newest account first.
func (s *conversationService) ListContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.`+strings.ReplaceAll(userColumns, ", ", ", u.")+`, c.last_updated
		FROM users u
		LEFT JOIN conversations c ON c.user_id = u.id
		WHERE u.role <> ?
		ORDER BY CASE WHEN c.user_id IS NULL THEN 1 ELSE 0 END, c.last_updated DESC, u.created_at DESC, u.id`,
		models.RoleAdmin,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var (
			contact               models.Contact
			image, phone, address sql.NullString
			lastUpdated           sql.NullString
		)
		if err := rows.Scan(&contact.ID, &contact.Email, &contact.Password, &contact.Name, &contact.Role,
			&image, &phone, &address, &contact.CreatedAt, &contact.UpdatedAt, &lastUpdated); err != nil {
			return nil, err
		}
		contact.Image = image.String
		contact.Phone = phone.String
		contact.Address = address.String
		contact.LastUpdated = lastUpdated.String
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (s *conversationService) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&count)
	return count, err
}

func (s *conversationService) ensure(ctx context.Context, userID string) error {
	var users int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", userID).Scan(&users); err != nil {
		return err
	}
	if users == 0 {
		return ErrUserNotFound
	}

	var threads int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations WHERE user_id = ?", userID).Scan(&threads); err != nil {
		return err
	}
	if threads > 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, "INSERT INTO conversations (user_id, last_updated) VALUES (?, ?)", userID, now())
	if err != nil && !isDuplicateKeyError(err) {
		return errors.Wrap(err, "create conversation")
	}
	return nil
}

func (s *conversationService) load(ctx context.Context, userID string) (models.Conversation, error) {
	conversation := models.Conversation{UserID: userID, Messages: []models.Message{}}
	if err := s.db.QueryRowContext(ctx, "SELECT last_updated FROM conversations WHERE user_id = ?", userID).Scan(&conversation.LastUpdated); err != nil {
		return models.Conversation{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, sender, content, created_at FROM messages WHERE user_id = ? ORDER BY seq", userID)
	if err != nil {
		return models.Conversation{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Content, &m.Timestamp); err != nil {
			return models.Conversation{}, err
		}
		conversation.Messages = append(conversation.Messages, m)
	}
	return conversation, rows.Err()
}
