package profile

import (
	"bytes"
	"time"

	"github.com/rs/xid"
	"golang.org/x/xerrors"
)

type ID []byte

func NewID() ID {
	return xid.New().Bytes()
}

func IDFromString(s string) (ID, error) {
	id, err := xid.FromString(s)
	if err != nil {
		return nil, xerrors.Errorf("could not parse profile id %q: %w", s, err)
	}
	return id.Bytes(), nil
}

func (pid ID) IsNil() bool {
	return pid == nil
}

func (pid ID) MarshalJSON() ([]byte, error) {
	if pid == nil {
		return []byte("null"), nil
	}
	id, err := xid.FromBytes(pid)
	if err != nil {
		return nil, err
	}
	return id.MarshalJSON()
}

func (pid *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*pid = nil
		return nil
	}
	var id xid.ID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	*pid = id.Bytes()
	return nil
}

func (pid ID) String() string {
	id, _ := xid.FromBytes(pid)
	return id.String()
}

// Meta describes a stored profile payload.
type Meta struct {
	ProfileID ID          `json:"profile_id"`
	Service   string      `json:"service"`
	Type      ProfileType `json:"type"`
	Labels    Labels      `json:"labels,omitempty"`
	Size      int64       `json:"size,omitempty"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
}

func NewMeta(service string, ptyp ProfileType, labels Labels) Meta {
	return Meta{
		ProfileID: NewID(),
		Service:   service,
		Type:      ptyp,
		Labels:    labels,
		CreatedAt: time.Now().UTC(),
	}
}
