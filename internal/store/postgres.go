// Package store is the durable persistence layer on Postgres. It
// implements the store interfaces of the auth, rescue and blog
// packages; the real-time core never touches it directly.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"rescuegrid/internal/auth"
	"rescuegrid/internal/blog"
	"rescuegrid/internal/geo"
	"rescuegrid/internal/rescue"
)

type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgres(databaseURL string, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db, logger: logger}, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// InitSchema creates the tables if they are missing. Idempotent.
func (p *Postgres) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT,
			full_name TEXT,
			gender TEXT,
			age INT,
			favourite_animal TEXT,
			reason TEXT,
			avatar TEXT,
			password_hash TEXT NOT NULL,
			email_verified BOOLEAN DEFAULT FALSE,
			reputation INT DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			reporter_id UUID REFERENCES users(id) ON DELETE SET NULL,
			title TEXT,
			description TEXT,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			severity TEXT,
			category TEXT,
			photo_url TEXT,
			photos TEXT[] DEFAULT '{}',
			location_text TEXT,
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reports_lat_lng ON reports (latitude, longitude)`,

		`CREATE TABLE IF NOT EXISTS responses (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			report_id UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			volunteer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			message TEXT,
			status TEXT NOT NULL DEFAULT 'offered',
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS blogs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			tags TEXT[] DEFAULT '{}',
			photos TEXT[] DEFAULT '{}',
			videos TEXT[] DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
	}

	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

// --- auth.UserStore ---

func (p *Postgres) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users
		(id, username, email, phone, full_name, gender, age, favourite_animal, reason, avatar, password_hash, email_verified, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,FALSE,$12)`,
		u.ID, u.Username, u.Email, nullable(u.Phone), nullable(u.FullName), nullable(u.Gender),
		u.Age, nullable(u.FavouriteAnimal), nullable(u.Reason), nullable(u.Avatar),
		u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, COALESCE(phone,''), COALESCE(full_name,''), COALESCE(gender,''),
	age, COALESCE(favourite_animal,''), COALESCE(reason,''), COALESCE(avatar,''),
	COALESCE(password_hash,''), email_verified, reputation, created_at`

func (p *Postgres) UserByID(ctx context.Context, id string) (*auth.User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (p *Postgres) UserByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 OR phone = $1 LIMIT 1`,
		identifier)
	return scanUser(row)
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
	return scanUser(row)
}

func (p *Postgres) UpdateUserProfile(ctx context.Context, u *auth.User) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE users
		SET full_name=$1, gender=$2, age=$3, phone=$4, email=$5, favourite_animal=$6, reason=$7, avatar=$8
		WHERE id=$9`,
		nullable(u.FullName), nullable(u.Gender), u.Age, nullable(u.Phone), u.Email,
		nullable(u.FavouriteAnimal), nullable(u.Reason), nullable(u.Avatar), u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	return nil
}

func (p *Postgres) MarkEmailVerified(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking email verified: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	var age sql.NullInt64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.FullName, &u.Gender,
		&age, &u.FavouriteAnimal, &u.Reason, &u.Avatar,
		&u.PasswordHash, &u.EmailVerified, &u.Reputation, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if age.Valid {
		v := int(age.Int64)
		u.Age = &v
	}
	return &u, nil
}

// --- rescue.Store ---

const reportColumns = `id, COALESCE(reporter_id::text,''), COALESCE(title,''), COALESCE(description,''), latitude, longitude,
	COALESCE(severity,''), COALESCE(category,''), COALESCE(photo_url,''), photos,
	COALESCE(location_text,''), status, created_at`

func (p *Postgres) CreateReport(ctx context.Context, r *rescue.Report) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO reports
		(id, reporter_id, title, description, latitude, longitude, severity, category, photo_url, photos, location_text, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.ReporterID, nullable(r.Title), nullable(r.Description), r.Latitude, r.Longitude,
		nullable(string(r.Severity)), nullable(r.Category), nullable(r.PhotoURL),
		pq.Array(r.Photos), nullable(r.LocationText), r.Status, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

func (p *Postgres) ReportByID(ctx context.Context, id string) (*rescue.Report, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rescue.ErrNotFound
	}
	return report, err
}

func (p *Postgres) ReportsWithin(ctx context.Context, bounds geo.Bounds, limit int) ([]*rescue.Report, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY created_at DESC
		LIMIT $5`,
		bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []*rescue.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (p *Postgres) UpdateReportStatus(ctx context.Context, id string, status rescue.Status) error {
	result, err := p.db.ExecContext(ctx, `UPDATE reports SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("updating report status: %w", err)
	}
	return ensureAffected(result)
}

func (p *Postgres) CreateResponse(ctx context.Context, r *rescue.Response) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO responses (id, report_id, volunteer_id, message, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.ReportID, r.VolunteerID, nullable(r.Message), r.Status, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting response: %w", err)
	}
	return nil
}

func (p *Postgres) ResponseByID(ctx context.Context, id string) (*rescue.Response, error) {
	var r rescue.Response
	err := p.db.QueryRowContext(ctx, `
		SELECT id, report_id, volunteer_id, COALESCE(message,''), status, created_at
		FROM responses WHERE id = $1`, id,
	).Scan(&r.ID, &r.ReportID, &r.VolunteerID, &r.Message, &r.Status, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rescue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning response: %w", err)
	}
	return &r, nil
}

func (p *Postgres) UpdateResponseStatus(ctx context.Context, id, status string) error {
	result, err := p.db.ExecContext(ctx, `UPDATE responses SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("updating response status: %w", err)
	}
	return ensureAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*rescue.Report, error) {
	var r rescue.Report
	var photos pq.StringArray
	err := row.Scan(&r.ID, &r.ReporterID, &r.Title, &r.Description, &r.Latitude, &r.Longitude,
		&r.Severity, &r.Category, &r.PhotoURL, &photos, &r.LocationText, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Photos = photos
	return &r, nil
}

// --- blog.Store ---

func (p *Postgres) CreateBlog(ctx context.Context, b *blog.Blog) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO blogs (id, author_id, title, content, tags, photos, videos, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.AuthorID, b.Title, b.Content,
		pq.Array(b.Tags), pq.Array(b.Photos), pq.Array(b.Videos), b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting blog: %w", err)
	}
	return nil
}

const blogColumns = `b.id, b.author_id, u.username, b.title, b.content, b.tags, b.photos, b.videos, b.created_at`

func (p *Postgres) ListBlogs(ctx context.Context, limit int) ([]*blog.Blog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+blogColumns+`
		FROM blogs b
		JOIN users u ON b.author_id = u.id
		ORDER BY b.created_at DESC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying blogs: %w", err)
	}
	defer rows.Close()
	return collectBlogs(rows)
}

func (p *Postgres) BlogsByAuthor(ctx context.Context, authorID string) ([]*blog.Blog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+blogColumns+`
		FROM blogs b
		JOIN users u ON b.author_id = u.id
		WHERE b.author_id = $1
		ORDER BY b.created_at DESC`, authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying blogs by author: %w", err)
	}
	defer rows.Close()
	return collectBlogs(rows)
}

func collectBlogs(rows *sql.Rows) ([]*blog.Blog, error) {
	var blogs []*blog.Blog
	for rows.Next() {
		var b blog.Blog
		var tags, photos, videos pq.StringArray
		if err := rows.Scan(&b.ID, &b.AuthorID, &b.Author, &b.Title, &b.Content,
			&tags, &photos, &videos, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning blog: %w", err)
		}
		b.Tags, b.Photos, b.Videos = tags, photos, videos
		blogs = append(blogs, &b)
	}
	return blogs, rows.Err()
}

func ensureAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return rescue.ErrNotFound
	}
	return nil
}

// nullable maps empty strings to NULL so COALESCE reads stay symmetric
// with the original schema's optional columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
