// Package traffic holds the session and pageview entities of the relational
// snapshot. Sessions carry their four attribution dimensions, classified
// exactly once at load time; nothing downstream ever re-derives them.
package traffic

import (
	"fmt"
	"sort"
	"time"

	"shopalytics/internal/attribution"
	"shopalytics/internal/rawdata"
)

// Session is one website visit with its derived marketing dimensions.
type Session struct {
	ID           int64     `gorm:"primaryKey"`
	CreatedAt    time.Time `gorm:"index;type:datetime;not null"`
	UserID       int64     `gorm:"index;not null"`
	IsRepeat     bool      `gorm:"not null"`
	DeviceType   string    `gorm:"index;not null"`
	ChannelGroup string    `gorm:"index;not null"`
	Source       string    `gorm:"index;not null"`
	Campaign     string    `gorm:"not null"`
	AdContent    string    `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (Session) TableName() string {
	return rawdata.EntitySessions
}

// Pageview is one URL hit inside a session, ordered by time and, on ties,
// by ascending id.
type Pageview struct {
	ID        int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index;type:datetime;not null"`
	SessionID int64     `gorm:"index;not null"`
	URL       string    `gorm:"index;not null"`
}

func (Pageview) TableName() string {
	return rawdata.EntityPageviews
}

// SessionFromRaw normalizes one raw session row and classifies its
// attribution dimensions from the raw referrer/UTM fields.
func SessionFromRaw(row rawdata.Row) (Session, error) {
	id, err := row.ID("website_session_id")
	if err != nil {
		return Session{}, err
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return Session{}, err
	}
	userID, err := row.ID("user_id")
	if err != nil {
		return Session{}, err
	}
	isRepeat, err := row.Flag("is_repeat_session")
	if err != nil {
		return Session{}, err
	}

	deviceType := row.Get("device_type")
	if deviceType == "" {
		deviceType = attribution.Unknown
	}

	classified := attribution.Classify(
		row.Get("utm_source"),
		row.Get("http_referer"),
		row.Get("utm_campaign"),
		row.Get("utm_content"),
	)

	return Session{
		ID:           id,
		CreatedAt:    createdAt,
		UserID:       userID,
		IsRepeat:     isRepeat,
		DeviceType:   deviceType,
		ChannelGroup: classified.ChannelGroup,
		Source:       classified.Source,
		Campaign:     classified.Campaign,
		AdContent:    classified.AdContent,
	}, nil
}

// PageviewFromRaw normalizes one raw pageview row.
func PageviewFromRaw(row rawdata.Row) (Pageview, error) {
	id, err := row.ID("website_pageview_id")
	if err != nil {
		return Pageview{}, err
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return Pageview{}, err
	}
	sessionID, err := row.ID("website_session_id")
	if err != nil {
		return Pageview{}, err
	}
	url := row.Get("pageview_url")
	if url == "" {
		return Pageview{}, fmt.Errorf("%s row %d: missing pageview_url: %w", row.Entity, row.Number, rawdata.ErrMalformedInput)
	}

	return Pageview{ID: id, CreatedAt: createdAt, SessionID: sessionID, URL: url}, nil
}

// LoadSessions reads and normalizes the raw session file, failing on the
// first malformed row.
func LoadSessions(dir string) ([]Session, error) {
	rows, err := rawdata.ReadEntity(dir, rawdata.EntitySessions)
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(rows))
	for _, row := range rows {
		session, err := SessionFromRaw(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// LoadPageviews reads and normalizes the raw pageview file, failing on the
// first malformed row.
func LoadPageviews(dir string) ([]Pageview, error) {
	rows, err := rawdata.ReadEntity(dir, rawdata.EntityPageviews)
	if err != nil {
		return nil, err
	}

	pageviews := make([]Pageview, 0, len(rows))
	for _, row := range rows {
		pageview, err := PageviewFromRaw(row)
		if err != nil {
			return nil, err
		}
		pageviews = append(pageviews, pageview)
	}
	return pageviews, nil
}

// BySession groups pageviews by session id, each group sorted
// chronologically with pageview id as the tie-breaker. The ordering is what
// landing-page attribution depends on.
func BySession(pageviews []Pageview) map[int64][]Pageview {
	grouped := make(map[int64][]Pageview)
	for _, pageview := range pageviews {
		grouped[pageview.SessionID] = append(grouped[pageview.SessionID], pageview)
	}
	for sessionID := range grouped {
		views := grouped[sessionID]
		sort.Slice(views, func(i, j int) bool {
			if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
				return views[i].CreatedAt.Before(views[j].CreatedAt)
			}
			return views[i].ID < views[j].ID
		})
	}
	return grouped
}
