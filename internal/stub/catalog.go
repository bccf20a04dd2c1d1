// Package stub is a local stand-in for the video platform API.
//
// A Catalog keeps channels, short videos and the viewer's follows in SQLite.
// Server exposes the catalog over the same HTTP endpoints the fetch client
// calls, with optional latency and injected failures, so a feed session can
// run end to end without the real service.
package stub

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"
)

// ErrUnknownChannel is returned when following a channel the catalog does
// not have.
var ErrUnknownChannel = errors.New("stub: unknown channel")

// Channel is a video owner.
type Channel struct {
	ID        int64  `toml:"id"`
	Login     string `toml:"login"`
	Avatar    string `toml:"avatar"`
	Followers int64  `toml:"followers"`
}

// Video is one short video. Created orders the DATE sort.
type Video struct {
	ID        int64     `toml:"id"`
	Name      string    `toml:"name"`
	ChannelID int64     `toml:"channel_id"`
	Preview   string    `toml:"preview"`
	Media     string    `toml:"media"`
	Views     int64     `toml:"views"`
	Created   time.Time `toml:"created"`
}

// VideoRow is a video joined with its channel.
type VideoRow struct {
	Video
	Channel Channel
}

// Sort keys understood by Page. Anything else sorts by DATE.
const (
	SortDate  = "DATE"
	SortViews = "VIEWERS"
)

// Catalog is the stub's SQLite store. Safe for concurrent use.
type Catalog struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a Catalog at dbPath, creating tables if needed. Use
// ":memory:" for a private in-memory catalog.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return c, nil
}

func (c *Catalog) createTables() error {
	tables := []*sqlbuilder.CreateTableBuilder{
		sqlbuilder.SQLite.NewCreateTableBuilder().
			CreateTable("channels").IfNotExists().
			Define("id", "INTEGER", "PRIMARY KEY").
			Define("login", "TEXT", "NOT NULL").
			Define("avatar", "TEXT").
			Define("followers", "INTEGER", "NOT NULL", "DEFAULT 0"),
		sqlbuilder.SQLite.NewCreateTableBuilder().
			CreateTable("videos").IfNotExists().
			Define("id", "INTEGER", "PRIMARY KEY").
			Define("name", "TEXT").
			Define("channel_id", "INTEGER", "NOT NULL", "REFERENCES channels(id)").
			Define("preview", "TEXT").
			Define("media", "TEXT").
			Define("views", "INTEGER", "NOT NULL", "DEFAULT 0").
			Define("created", "INTEGER", "NOT NULL"),
		sqlbuilder.SQLite.NewCreateTableBuilder().
			CreateTable("follows").IfNotExists().
			Define("seq", "INTEGER", "PRIMARY KEY", "AUTOINCREMENT").
			Define("channel_id", "INTEGER", "NOT NULL", "UNIQUE"),
	}

	for _, t := range tables {
		q, args := t.Build()
		if _, err := c.db.Exec(q, args...); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}
	if _, err := c.db.Exec(`CREATE INDEX IF NOT EXISTS idx_videos_channel ON videos(channel_id)`); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// Load inserts or replaces the seed's channels, videos and follows.
func (c *Catalog) Load(s *Seed) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(s.Channels) > 0 {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.ReplaceInto("channels").Cols("id", "login", "avatar", "followers")
		for _, ch := range s.Channels {
			ib.Values(ch.ID, ch.Login, ch.Avatar, ch.Followers)
		}
		q, args := ib.Build()
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("insert channels: %w", err)
		}
	}

	if len(s.Videos) > 0 {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.ReplaceInto("videos").Cols("id", "name", "channel_id", "preview", "media", "views", "created")
		for _, v := range s.Videos {
			ib.Values(v.ID, v.Name, v.ChannelID, v.Preview, v.Media, v.Views, v.Created.UnixNano())
		}
		q, args := ib.Build()
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("insert videos: %w", err)
		}
	}

	for _, id := range lo.Uniq(s.Follows) {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertIgnoreInto("follows").Cols("channel_id").Values(id)
		q, args := ib.Build()
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("insert follow %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// Page returns videos newest first (or most viewed first for SortViews),
// optionally restricted to one channel. channelID 0 means all channels.
func (c *Catalog) Page(sortKey string, channelID int64, offset, limit int) ([]VideoRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(
		"v.id", "v.name", "v.channel_id", "v.preview", "v.media", "v.views", "v.created",
		"c.login", "c.avatar", "c.followers",
	).From("videos v").Join("channels c", "c.id = v.channel_id")
	if channelID != 0 {
		sb.Where(sb.Equal("v.channel_id", channelID))
	}
	switch sortKey {
	case SortViews:
		sb.OrderBy("v.views DESC", "v.id DESC")
	default:
		sb.OrderBy("v.created DESC", "v.id DESC")
	}
	sb.Limit(limit).Offset(offset)

	q, args := sb.Build()
	rows, err := c.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var out []VideoRow
	for rows.Next() {
		var r VideoRow
		var created int64
		var name, preview, media, avatar sql.NullString
		if err := rows.Scan(
			&r.ID, &name, &r.ChannelID, &preview, &media, &r.Views, &created,
			&r.Channel.Login, &avatar, &r.Channel.Followers,
		); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		r.Name, r.Preview, r.Media = name.String, preview.String, media.String
		r.Channel.ID = r.ChannelID
		r.Channel.Avatar = avatar.String
		r.Created = time.Unix(0, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Followed returns followed channel ids, most recently followed first.
func (c *Catalog) Followed(offset, limit int) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("channel_id").From("follows").OrderBy("seq DESC").Limit(limit).Offset(offset)

	q, args := sb.Build()
	rows, err := c.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query follows: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Follow records a follow and bumps the channel's follower count. Following
// twice is a no-op.
func (c *Catalog) Follow(channelID int64) error {
	return c.setFollow(channelID, true)
}

// Unfollow removes a follow. Unfollowing a channel that is not followed is
// a no-op.
func (c *Catalog) Unfollow(channelID int64) error {
	return c.setFollow(channelID, false)
}

func (c *Catalog) setFollow(channelID int64, follow bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	sel := sqlbuilder.SQLite.NewSelectBuilder()
	sel.Select("COUNT(*)").From("channels").Where(sel.Equal("id", channelID))
	q, args := sel.Build()
	var n int
	if err := tx.QueryRow(q, args...).Scan(&n); err != nil {
		return fmt.Errorf("lookup channel: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, channelID)
	}

	var res sql.Result
	if follow {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertIgnoreInto("follows").Cols("channel_id").Values(channelID)
		q, args = ib.Build()
	} else {
		db := sqlbuilder.SQLite.NewDeleteBuilder()
		db.DeleteFrom("follows").Where(db.Equal("channel_id", channelID))
		q, args = db.Build()
	}
	if res, err = tx.Exec(q, args...); err != nil {
		return fmt.Errorf("update follows: %w", err)
	}
	if changed, _ := res.RowsAffected(); changed == 0 {
		return tx.Commit()
	}

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("channels").Where(ub.Equal("id", channelID))
	if follow {
		ub.Set(ub.Incr("followers"))
	} else {
		ub.Set(ub.Decr("followers"))
	}
	q, args = ub.Build()
	if _, err := tx.Exec(q, args...); err != nil {
		return fmt.Errorf("update followers: %w", err)
	}
	return tx.Commit()
}

// Channel returns one channel.
func (c *Catalog) Channel(id int64) (Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "login", "avatar", "followers").From("channels").Where(sb.Equal("id", id))
	q, args := sb.Build()

	var ch Channel
	var avatar sql.NullString
	err := c.db.QueryRow(q, args...).Scan(&ch.ID, &ch.Login, &avatar, &ch.Followers)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, fmt.Errorf("%w: %d", ErrUnknownChannel, id)
	}
	if err != nil {
		return Channel{}, fmt.Errorf("query channel: %w", err)
	}
	ch.Avatar = avatar.String
	return ch, nil
}
