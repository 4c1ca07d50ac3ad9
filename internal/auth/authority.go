// Package auth implements the capability policy guarding the ledger's
// privileged operations: a single admin identity that can set the global
// rate and grant the mint/burn capability, plus an auditable grant log.
package auth

import (
	"fmt"
	"sync"
	"time"
)

// Grant is one entry in the audit log of mint/burn capability changes.
type Grant struct {
	Grantee   string    `json:"grantee"`
	GrantedBy string    `json:"granted_by"`
	Revoked   bool      `json:"revoked"`
	At        time.Time `json:"at"`
}

// Authority is an allow-list capability policy. The admin may grant the
// mint/burn capability to anyone, including itself: a self-granting admin
// is a trust assumption of this design, not something the policy prevents.
type Authority struct {
	mu      sync.RWMutex
	admin   string
	minters map[string]bool
	log     []Grant
}

// NewAuthority creates a policy with the given admin identity.
func NewAuthority(admin string) *Authority {
	return &Authority{
		admin:   admin,
		minters: make(map[string]bool),
	}
}

// IsAdmin reports whether caller holds the administrative capability.
func (a *Authority) IsAdmin(caller string) bool {
	return caller == a.admin
}

// IsMinter reports whether caller holds the mint/burn capability.
func (a *Authority) IsMinter(caller string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.minters[caller]
}

// GrantMintBurn grants the mint/burn capability to grantee. Only the admin
// may grant. The capability is powerful (its holder can mint unbacked
// value), so every grant lands in the audit log.
func (a *Authority) GrantMintBurn(caller, grantee string) error {
	if !a.IsAdmin(caller) {
		return fmt.Errorf("caller %s is not the admin", caller)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.minters[grantee] = true
	a.log = append(a.log, Grant{Grantee: grantee, GrantedBy: caller, At: time.Now().UTC()})
	return nil
}

// RevokeMintBurn removes the mint/burn capability from grantee.
func (a *Authority) RevokeMintBurn(caller, grantee string) error {
	if !a.IsAdmin(caller) {
		return fmt.Errorf("caller %s is not the admin", caller)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.minters, grantee)
	a.log = append(a.log, Grant{Grantee: grantee, GrantedBy: caller, Revoked: true, At: time.Now().UTC()})
	return nil
}

// GrantLog returns a copy of the audit log, oldest first.
func (a *Authority) GrantLog() []Grant {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Grant, len(a.log))
	copy(out, a.log)
	return out
}
