package ratelimit

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"
)

const (
	DefaultMaxDaily = 20
	CookieTTL       = 24 * time.Hour
	recordTTL       = 48 * time.Hour
	dateLayout      = "2006-01-02"
)

// Client identifies the caller of one request.
type Client struct {
	IP        string
	UserAgent string
	Cookie    string // raw value of the quota cookie, empty when absent
}

type Decision struct {
	Allowed     bool
	Remaining   int
	Count       int
	Fingerprint string
	// Cookie is the re-signed quota cookie to send back. Empty on denial.
	Cookie string
}

type Options struct {
	Secret          string
	MaxDaily        int
	Location        *time.Location
	FingerprintSalt string
	Now             func() time.Time
}

// Limiter enforces a daily submission quota per client fingerprint. The
// count is kept both in a signed cookie and in a Store; the larger of the
// two wins, so clearing either one alone does not reset the quota. This is
// abuse deterrence, not a security boundary.
type Limiter struct {
	store    Store
	codec    *CookieCodec
	maxDaily int
	loc      *time.Location
	salt     string
	now      func() time.Time
}

func NewLimiter(store Store, opts Options) *Limiter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxDaily <= 0 {
		opts.MaxDaily = DefaultMaxDaily
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	secret := []byte(opts.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic("ratelimit: generating secret: " + err.Error())
		}
		slog.Warn("RATE_LIMIT_SECRET not set, using a per-process secret; quota cookies reset on restart")
	}

	return &Limiter{
		store:    store,
		codec:    NewCookieCodec(secret, opts.Now),
		maxDaily: opts.MaxDaily,
		loc:      opts.Location,
		salt:     opts.FingerprintSalt,
		now:      opts.Now,
	}
}

func (l *Limiter) MaxDaily() int { return l.maxDaily }

// Today is the quota partition key in the limiter's fixed timezone.
func (l *Limiter) Today() string {
	return l.now().In(l.loc).Format(dateLayout)
}

func (l *Limiter) Len(ctx context.Context) (int, error) {
	return l.store.Len(ctx)
}

// Consume admits or denies one submission and, when admitted, records it.
// Store failures are logged and treated as "no record".
func (l *Limiter) Consume(ctx context.Context, client Client) Decision {
	today := l.Today()
	fp := Fingerprint(l.salt, client.IP, client.UserAgent)
	key := today + ":" + fp

	if err := l.store.Prune(ctx, today); err != nil {
		slog.WarnContext(ctx, "pruning rate limit store failed", "error", err)
	}

	count := max(l.cookieCount(client.Cookie, today, fp), l.storeCount(ctx, key, today))
	if count >= l.maxDaily {
		slog.InfoContext(ctx, "daily quota exhausted", "count", count, "max", l.maxDaily)
		return Decision{Allowed: false, Remaining: 0, Count: count, Fingerprint: fp}
	}

	next := count + 1
	rec := Record{Count: next, Date: today, Fingerprint: fp}

	if err := l.store.Set(ctx, key, rec, recordTTL); err != nil {
		slog.WarnContext(ctx, "persisting rate limit record failed", "error", err)
	}

	cookie, err := l.codec.Encode(rec, CookieTTL)
	if err != nil {
		slog.WarnContext(ctx, "encoding rate limit cookie failed", "error", err)
	}

	return Decision{
		Allowed:     true,
		Remaining:   l.maxDaily - next,
		Count:       next,
		Fingerprint: fp,
		Cookie:      cookie,
	}
}

func (l *Limiter) cookieCount(raw, today, fp string) int {
	rec, ok := l.codec.Decode(raw)
	if !ok || rec.Date != today || rec.Fingerprint != fp {
		return 0
	}
	return min(rec.Count, l.maxDaily)
}

func (l *Limiter) storeCount(ctx context.Context, key, today string) int {
	rec, ok, err := l.store.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "reading rate limit store failed", "error", err)
		return 0
	}
	if !ok || rec.Date != today {
		return 0
	}
	return min(rec.Count, l.maxDaily)
}
