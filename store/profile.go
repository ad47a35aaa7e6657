package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

// ProfileStore persists Profile records - the engine's ambient tuning
// surface, letting an operator adjust leverage caps and risk knobs
// without redeploying. Mirrors StrategyStore's table/trigger/CRUD shape.
type ProfileStore struct {
	db *sql.DB
}

// Profile is the §3 persistence entity: a named bundle of context-scorer
// weights and risk knobs, plus an optional encrypted provider secret.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsDefault  bool      `json:"is_default"`
	IsActive   bool      `json:"is_active"`
	Weights    string    `json:"weights"` // JSON-encoded ProfileWeights
	Risk       string    `json:"risk"`    // JSON-encoded ProfileRisk
	SecretBlob []byte    `json:"-"`       // nacl/secretbox-sealed provider API secret, never serialized
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileWeights stores per-profile copies of the leverage-cap arithmetic
// the Scenario Adapter hard-codes (scenario.capLeverage:
// max_safe=floor(10/atr_pct), recommended=floor(max_safe*0.6)). The
// adapter does not read these values; they are stored and served by the
// profiles API only.
type ProfileWeights struct {
	LeverageDivisor       float64 `json:"leverage_divisor"`        // numerator in max_safe=floor(divisor/atr_pct), default 10
	RecommendedFraction   float64 `json:"recommended_fraction"`    // recommended=floor(max_safe*fraction), default 0.6
	MaxSafeLeverageCap    float64 `json:"max_safe_leverage_cap"`   // hard ceiling on max_safe, default 20
	MinConfidenceToExpose int     `json:"min_confidence_to_expose"` // confidence threshold (0-100); stored only, no stage filters on it
}

// ProfileRisk mirrors the CODE ENFORCED subset of
// store.RiskControlConfig rather than its AI-guided advisory fields.
// The values are stored and served by the profiles API; no pipeline
// stage reads them.
type ProfileRisk struct {
	MaxPositions       int     `json:"max_positions"`
	MaxMarginUsage     float64 `json:"max_margin_usage"`
	MinPositionSizeUSD float64 `json:"min_position_size_usd"`
	MinRiskRewardRatio float64 `json:"min_risk_reward_ratio"`
}

// DefaultProfileWeights returns the values the Scenario Adapter
// currently hard-codes, so a freshly created default profile reproduces
// today's behavior exactly.
func DefaultProfileWeights() ProfileWeights {
	return ProfileWeights{
		LeverageDivisor:       10,
		RecommendedFraction:   0.6,
		MaxSafeLeverageCap:    20,
		MinConfidenceToExpose: 0,
	}
}

func DefaultProfileRisk() ProfileRisk {
	return ProfileRisk{
		MaxPositions:       5,
		MaxMarginUsage:     0.9,
		MinPositionSizeUSD: 50,
		MinRiskRewardRatio: 1.5,
	}
}

// ParseWeights decodes the profile's stored weights JSON.
func (p *Profile) ParseWeights() (ProfileWeights, error) {
	var w ProfileWeights
	if p.Weights == "" {
		return DefaultProfileWeights(), nil
	}
	if err := json.Unmarshal([]byte(p.Weights), &w); err != nil {
		return ProfileWeights{}, fmt.Errorf("store: parse profile weights: %w", err)
	}
	return w, nil
}

// SetWeights encodes w back into the profile's Weights field.
func (p *Profile) SetWeights(w ProfileWeights) error {
	b, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("store: encode profile weights: %w", err)
	}
	p.Weights = string(b)
	return nil
}

// ParseRisk decodes the profile's stored risk JSON.
func (p *Profile) ParseRisk() (ProfileRisk, error) {
	var r ProfileRisk
	if p.Risk == "" {
		return DefaultProfileRisk(), nil
	}
	if err := json.Unmarshal([]byte(p.Risk), &r); err != nil {
		return ProfileRisk{}, fmt.Errorf("store: parse profile risk: %w", err)
	}
	return r, nil
}

// SetRisk encodes r back into the profile's Risk field.
func (p *Profile) SetRisk(r ProfileRisk) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: encode profile risk: %w", err)
	}
	p.Risk = string(b)
	return nil
}

// SealSecret encrypts a provider API secret (e.g. a per-profile exchange
// key override) with nacl/secretbox under key, storing the nonce-prefixed
// ciphertext on the profile. The secret never touches the database or a
// JSON response in plaintext.
func (p *Profile) SealSecret(plaintext string, key *[32]byte) error {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("store: generate nonce: %w", err)
	}
	p.SecretBlob = secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return nil
}

// OpenSecret decrypts the profile's sealed secret under key. Returns
// ("", false, nil) when no secret is set.
func (p *Profile) OpenSecret(key *[32]byte) (string, bool, error) {
	if len(p.SecretBlob) == 0 {
		return "", false, nil
	}
	if len(p.SecretBlob) < 24 {
		return "", false, fmt.Errorf("store: sealed secret too short")
	}
	var nonce [24]byte
	copy(nonce[:], p.SecretBlob[:24])
	plain, ok := secretbox.Open(nil, p.SecretBlob[24:], &nonce, key)
	if !ok {
		return "", false, fmt.Errorf("store: secret decryption failed, wrong key or corrupted blob")
	}
	return string(plain), true, nil
}

func NewProfileStore(db *sql.DB) (*ProfileStore, error) {
	s := &ProfileStore{db: db}
	if err := s.initTables(); err != nil {
		return nil, err
	}
	if err := s.initDefaultData(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ProfileStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			is_active BOOLEAN DEFAULT 0,
			is_default BOOLEAN DEFAULT 0,
			weights TEXT NOT NULL DEFAULT '{}',
			risk TEXT NOT NULL DEFAULT '{}',
			secret_blob BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_profiles_is_active ON profiles(is_active)`)

	_, err = s.db.Exec(`
		CREATE TRIGGER IF NOT EXISTS update_profiles_updated_at
		AFTER UPDATE ON profiles
		BEGIN
			UPDATE profiles SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END
	`)
	return err
}

// initDefaultData seeds the single system-default profile on first run,
// reproducing today's hard-coded adapter constants exactly.
func (s *ProfileStore) initDefaultData() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE is_default = 1`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	p := &Profile{ID: "default", Name: "default", IsDefault: true, IsActive: true}
	if err := p.SetWeights(DefaultProfileWeights()); err != nil {
		return err
	}
	if err := p.SetRisk(DefaultProfileRisk()); err != nil {
		return err
	}
	return s.Create(p)
}

func (s *ProfileStore) Create(p *Profile) error {
	_, err := s.db.Exec(`
		INSERT INTO profiles (id, name, is_active, is_default, weights, risk, secret_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.IsActive, p.IsDefault, p.Weights, p.Risk, p.SecretBlob)
	return err
}

func (s *ProfileStore) Update(p *Profile) error {
	_, err := s.db.Exec(`
		UPDATE profiles SET
			name = ?, weights = ?, risk = ?, secret_blob = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.Weights, p.Risk, p.SecretBlob, p.ID)
	return err
}

// Delete refuses to remove the system default profile, same guard as
// StrategyStore.Delete.
func (s *ProfileStore) Delete(id string) error {
	var isDefault bool
	_ = s.db.QueryRow(`SELECT is_default FROM profiles WHERE id = ?`, id).Scan(&isDefault)
	if isDefault {
		return fmt.Errorf("store: cannot delete system default profile")
	}
	_, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	return err
}

func (s *ProfileStore) List() ([]*Profile, error) {
	rows, err := s.db.Query(`
		SELECT id, name, is_active, is_default, weights, risk, secret_blob, created_at, updated_at
		FROM profiles
		ORDER BY is_default DESC, created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ProfileStore) Get(id string) (*Profile, error) {
	row := s.db.QueryRow(`
		SELECT id, name, is_active, is_default, weights, risk, secret_blob, created_at, updated_at
		FROM profiles WHERE id = ?
	`, id)
	return scanProfile(row)
}

// GetActive returns the currently active profile, falling back to the
// system default when none is marked active.
func (s *ProfileStore) GetActive() (*Profile, error) {
	row := s.db.QueryRow(`
		SELECT id, name, is_active, is_default, weights, risk, secret_blob, created_at, updated_at
		FROM profiles WHERE is_active = 1 LIMIT 1
	`)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return s.GetDefault()
	}
	return p, err
}

func (s *ProfileStore) GetDefault() (*Profile, error) {
	row := s.db.QueryRow(`
		SELECT id, name, is_active, is_default, weights, risk, secret_blob, created_at, updated_at
		FROM profiles WHERE is_default = 1 LIMIT 1
	`)
	return scanProfile(row)
}

// SetActive marks id active and deactivates every other profile - only
// one profile is ever active at a time, unlike strategies which
// partition by category.
func (s *ProfileStore) SetActive(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE profiles SET is_active = 0`); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`UPDATE profiles SET is_active = 1 WHERE id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var createdAt, updatedAt string
	var secretBlob []byte
	err := row.Scan(&p.ID, &p.Name, &p.IsActive, &p.IsDefault, &p.Weights, &p.Risk, &secretBlob, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.SecretBlob = secretBlob
	p.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	p.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
	return &p, nil
}
