// Package seed loads the initial user directory and stock and writes them to
// an empty database.
package seed

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/sinalizacao/internal/auth"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/store"
)

//go:embed seed.yaml
var defaultSeed []byte

// User is one profile in a seed file. Preset names a permission preset;
// Permissions, when present, overrides it.
type User struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Role        string             `yaml:"role"`
	Secret      string             `yaml:"secret"`
	Preset      string             `yaml:"preset"`
	Permissions *model.Permissions `yaml:"permissions"`
}

// File is a decoded seed.
type File struct {
	Admin User         `yaml:"admin"`
	Users []User       `yaml:"users"`
	Items []model.Item `yaml:"items"`
}

// Load reads a seed file, or the embedded default when path is empty.
func Load(path string) (*File, error) {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading seed: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and checks a seed document. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}

	if f.Admin.Name == "" {
		return nil, fmt.Errorf("seed: administrator name required")
	}
	seen := map[string]bool{model.AdminID: true}
	for _, u := range f.Users {
		if u.ID == "" || seen[u.ID] {
			return nil, fmt.Errorf("seed: missing or duplicate user id %q", u.ID)
		}
		seen[u.ID] = true
		if u.Permissions == nil {
			if _, ok := model.PresetByName(u.Preset); !ok {
				return nil, fmt.Errorf("seed: user %s: unknown preset %q", u.ID, u.Preset)
			}
		}
		if err := model.ValidateSecret(u.Secret); err != nil {
			return nil, fmt.Errorf("seed: user %s: %w", u.ID, err)
		}
	}
	items := map[string]bool{}
	for _, it := range f.Items {
		if it.ID == "" || items[it.ID] {
			return nil, fmt.Errorf("seed: missing or duplicate item id %q", it.ID)
		}
		items[it.ID] = true
	}

	return &f, nil
}

// Apply writes the seed into db unless it already holds users. Secrets are
// stored in v's form. When the administrator secret is empty a random one is
// generated and returned; otherwise the returned secret is empty.
func Apply(ctx context.Context, db *sql.DB, f *File, v auth.Verifier) (seeded bool, adminSecret string, err error) {
	count, err := store.CountUsers(ctx, db)
	if err != nil {
		return false, "", err
	}
	if count > 0 {
		return false, "", nil
	}

	secret := f.Admin.Secret
	if secret == "" {
		secret, err = generatePassword(16)
		if err != nil {
			return false, "", fmt.Errorf("generating password: %w", err)
		}
		adminSecret = secret
	}

	admin := model.User{
		ID:          model.AdminID,
		Name:        f.Admin.Name,
		Role:        f.Admin.Role,
		IsAdmin:     true,
		Permissions: model.FullAccess,
	}
	if err := putUser(ctx, db, v, admin, secret); err != nil {
		return false, "", err
	}

	for _, su := range f.Users {
		perms, _ := model.PresetByName(su.Preset)
		if su.Permissions != nil {
			perms = *su.Permissions
		}
		u := model.User{ID: su.ID, Name: su.Name, Role: su.Role, Permissions: perms}
		if err := putUser(ctx, db, v, u, su.Secret); err != nil {
			return false, "", err
		}
	}

	// Insert oldest first so the listed order survives.
	for _, it := range slices.Backward(f.Items) {
		if err := store.PutItem(ctx, db, it); err != nil {
			return false, "", err
		}
	}

	slog.Info("database seeded", "users", len(f.Users)+1, "items", len(f.Items))
	return true, adminSecret, nil
}

func putUser(ctx context.Context, db *sql.DB, v auth.Verifier, u model.User, secret string) error {
	stored, err := v.Hash(secret)
	if err != nil {
		return fmt.Errorf("hashing secret for %s: %w", u.ID, err)
	}
	u.Pass = stored
	return store.PutUser(ctx, db, u)
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
