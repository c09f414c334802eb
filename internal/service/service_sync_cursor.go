package service

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/MKhiriev/reflog-sync/models"
)

// The pull cursor is base64url("<updatedAt RFC3339Nano>|<id>"). RFC 3339
// never contains '|', so the first separator splits the key even when the
// record id contains one.

func encodeCursor(c models.PullCursor) string {
	raw := c.UpdatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (models.PullCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return models.PullCursor{}, err
	}

	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return models.PullCursor{}, errors.New("malformed cursor")
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return models.PullCursor{}, err
	}

	return models.PullCursor{UpdatedAt: updatedAt.UTC(), ID: id}, nil
}
