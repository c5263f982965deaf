package devfacade

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/wordpress-mobile/authflow/pkg/credentials"
)

// Account is one registered account in the directory.
type Account struct {
	UserID   int64
	Email    string
	Username string

	// SiteAddress is set for accounts that live on an independent install.
	// Hosted accounts leave it empty.
	SiteAddress string

	passwordHash   string
	totpSecret     string
	phoneNumber    string
	backupCodes    []string
	socialSubjects map[credentials.SocialService]string
}

// RequiresTwoFactor reports whether any second-factor channel is enabled.
func (a *Account) RequiresTwoFactor() bool {
	return a.totpSecret != "" || a.phoneNumber != "" || len(a.backupCodes) > 0
}

// AccountSpec describes an account to register with a Directory.
type AccountSpec struct {
	Email       string
	Username    string
	Password    string
	SiteAddress string

	// PhoneNumber enables the SMS channel.
	PhoneNumber string
	// BackupCodes enables the backup-code channel. Each code is single use.
	BackupCodes []string
}

// Directory is the in-memory account registry backing the dev facade.
type Directory struct {
	mu         sync.Mutex
	accounts   map[int64]*Account
	byEmail    map[string]int64
	byUsername map[string]int64
	nextID     int64
}

func NewDirectory() *Directory {
	return &Directory{
		accounts:   make(map[int64]*Account),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
		nextID:     1000,
	}
}

// Add registers an account, hashing its password with bcrypt.
func (d *Directory) Add(spec AccountSpec) (*Account, error) {
	if spec.Email == "" {
		return nil, fmt.Errorf("account requires an email")
	}
	if spec.Password == "" {
		return nil, fmt.Errorf("account requires a password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	email := strings.ToLower(spec.Email)
	if _, exists := d.byEmail[email]; exists {
		return nil, fmt.Errorf("email already registered: %s", email)
	}
	d.nextID++
	account := &Account{
		UserID:         d.nextID,
		Email:          email,
		Username:       strings.ToLower(spec.Username),
		SiteAddress:    spec.SiteAddress,
		passwordHash:   string(hashed),
		phoneNumber:    spec.PhoneNumber,
		backupCodes:    append([]string(nil), spec.BackupCodes...),
		socialSubjects: make(map[credentials.SocialService]string),
	}
	d.accounts[account.UserID] = account
	d.byEmail[email] = account.UserID
	if account.Username != "" {
		d.byUsername[account.Username] = account.UserID
	}
	return account, nil
}

// EnableAuthenticator provisions a TOTP secret for the account and returns
// it so tests can generate passcodes.
func (d *Directory) EnableAuthenticator(userID int64) (string, error) {
	d.mu.Lock()
	account, ok := d.accounts[userID]
	d.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no account with id %d", userID)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "authflow-dev",
		AccountName: account.Email,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}
	d.mu.Lock()
	account.totpSecret = key.Secret()
	d.mu.Unlock()
	return key.Secret(), nil
}

// LinkSocial records a third-party identity subject for the account.
func (d *Directory) LinkSocial(userID int64, service credentials.SocialService, subject string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[userID]
	if !ok {
		return fmt.Errorf("no account with id %d", userID)
	}
	account.socialSubjects[service] = subject
	return nil
}

func (d *Directory) byID(userID int64) *Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accounts[userID]
}

// FindByIdentifier resolves an email or username to an account.
func (d *Directory) FindByIdentifier(identifier string) *Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := strings.ToLower(strings.TrimSpace(identifier))
	if userID, ok := d.byEmail[id]; ok {
		return d.accounts[userID]
	}
	if userID, ok := d.byUsername[id]; ok {
		return d.accounts[userID]
	}
	return nil
}

// HasEmail reports whether any account uses the email.
func (d *Directory) HasEmail(email string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// HasHostedEmail reports whether a hosted account uses the email.
// Self-hosted accounts are invisible to hosted-service lookups.
func (d *Directory) HasHostedEmail(email string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	userID, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return false
	}
	return d.accounts[userID].SiteAddress == ""
}

// consumeBackupCode removes the code from the account if present.
func (d *Directory) consumeBackupCode(userID int64, code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[userID]
	if !ok {
		return false
	}
	for i, c := range account.backupCodes {
		if c == code {
			account.backupCodes = append(account.backupCodes[:i], account.backupCodes[i+1:]...)
			return true
		}
	}
	return false
}

func (a *Account) verifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password))
	return err == nil
}
