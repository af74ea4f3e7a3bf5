package mfa

import (
	cryptoRand "crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

const (
	defaultIssuer     = "OsitoPolar"
	defaultQRCodeSize = 256

	// secretBytes is the raw entropy of generated secrets (160 bits).
	secretBytes = 20

	// period is the TOTP time step in seconds. Codes are accepted for the
	// current step plus one step either side to absorb clock skew, which
	// bounds any single code's validity to a 90-second span.
	period = 30
	skew   = 1
)

// Setup carries everything a client needs to enrol an authenticator app.
// It is transient: only the raw secret is ever persisted, on the user row.
type Setup struct {
	Secret         string
	URI            string
	QRCodeDataURL  string
	ManualEntryKey string
}

// Option allows customising the TOTP engine.
type Option func(*Engine)

// WithIssuer overrides the issuer string encoded in provisioning URIs.
func WithIssuer(issuer string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(issuer) != "" {
			e.issuer = issuer
		}
	}
}

// WithQRCodeSize controls the pixel size of generated QR codes.
func WithQRCodeSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.qrCodeSize = size
		}
	}
}

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// Engine generates shared secrets, provisioning material, and validates
// submitted codes. It holds no storage: secrets live on the User record.
type Engine struct {
	issuer     string
	qrCodeSize int
	now        func() time.Time
}

// NewEngine constructs a TOTP engine.
func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		issuer:     defaultIssuer,
		qrCodeSize: defaultQRCodeSize,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Issuer returns the issuer encoded in provisioning URIs.
func (e *Engine) Issuer() string {
	return e.issuer
}

// GenerateSecret produces a fresh random secret together with its
// provisioning material for the given account label.
func (e *Engine) GenerateSecret(label string) (*Setup, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, errors.New("totp: label is required")
	}

	buf := make([]byte, secretBytes)
	if _, err := cryptoRand.Read(buf); err != nil {
		return nil, fmt.Errorf("totp: generate secret: %w", err)
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	return e.SetupFromSecret(secret, label)
}

// SetupFromSecret derives provisioning material for an existing secret, used
// when a secret was already persisted and the client needs the QR code again.
func (e *Engine) SetupFromSecret(secret, label string) (*Setup, error) {
	secret = strings.TrimSpace(secret)
	label = strings.TrimSpace(label)
	if secret == "" || label == "" {
		return nil, errors.New("totp: secret and label are required")
	}

	uri := e.provisioningURI(secret, label)

	png, err := qrcode.Encode(uri, qrcode.Medium, e.qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("totp: render qr code: %w", err)
	}

	return &Setup{
		Secret:         secret,
		URI:            uri,
		QRCodeDataURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ManualEntryKey: FormatManualEntryKey(secret),
	}, nil
}

// ValidateCode checks a submitted 6-digit code against the secret, accepting
// the current time step and one step either side. Malformed secrets or codes
// report false rather than an error.
func (e *Engine) ValidateCode(secret, code string) bool {
	secret = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}

	valid, err := totp.ValidateCustom(code, secret, e.now(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}

	return valid
}

// provisioningURI builds the otpauth URI consumed by authenticator apps:
// otpauth://totp/<issuer>:<label>?secret=<secret>&issuer=<issuer>
func (e *Engine) provisioningURI(secret, label string) string {
	issuer := url.PathEscape(e.issuer)
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		issuer, url.PathEscape(label), secret, issuer)
}

// FormatManualEntryKey groups a Base32 secret into 4-character blocks for
// manual transcription. The last group may be shorter.
func FormatManualEntryKey(secret string) string {
	var groups []string
	for i := 0; i < len(secret); i += 4 {
		end := i + 4
		if end > len(secret) {
			end = len(secret)
		}
		groups = append(groups, secret[i:end])
	}
	return strings.Join(groups, " ")
}
