package repository

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/domain"
)

var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor is the sort key of the last row a caller has seen. Rows are ordered
// by created_at then id, both descending.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func CursorFor(rec *domain.Recommendation) Cursor {
	return Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
}

func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UTC().UnixMicro(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	micros, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(micros, 10, 64)
	if err != nil || n <= 0 {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: time.UnixMicro(n).UTC(), ID: id}, nil
}
