// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
)

var (
	errEmailTaken      = errors.New("email already taken")
	errUnknownHospital = errors.New("unknown hospital code")
	errBadCredentials  = errors.New("invalid credentials")
)

type account struct {
	user api.User
	hash []byte
}

type hospital struct {
	api.Hospital
	code string
}

// directory holds hospitals and accounts.
type directory struct {
	now func() time.Time
	// cost is the bcrypt cost; tests lower it.
	cost int

	mu        sync.RWMutex
	nextUser  int64
	nextHosp  int64
	hospitals map[string]*hospital
	byID      map[int64]*account
	byEmail   map[string]*account
}

func newDirectory(now func() time.Time, cost int) *directory {
	return &directory{
		now:       now,
		cost:      cost,
		hospitals: make(map[string]*hospital),
		byID:      make(map[int64]*account),
		byEmail:   make(map[string]*account),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *directory) addHospital(code, name string) api.Hospital {
	d.mu.Lock()
	defer d.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	if h, ok := d.hospitals[code]; ok {
		return h.Hospital
	}
	d.nextHosp++
	h := &hospital{Hospital: api.Hospital{ID: d.nextHosp, Name: name}, code: code}
	d.hospitals[code] = h
	return h.Hospital
}

func (d *directory) hospitalByID(id int64) (api.Hospital, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.hospitals {
		if h.ID == id {
			return h.Hospital, true
		}
	}
	return api.Hospital{}, false
}

func (d *directory) register(name, email, password, code string) (api.User, api.Hospital, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return api.User{}, api.Hospital{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	email = normalizeEmail(email)
	if _, ok := d.byEmail[email]; ok {
		return api.User{}, api.Hospital{}, errEmailTaken
	}
	h, ok := d.hospitals[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return api.User{}, api.Hospital{}, errUnknownHospital
	}

	d.nextUser++
	stamp := d.now().UTC().Format(time.RFC3339)
	acct := &account{
		user: api.User{
			ID:         d.nextUser,
			Name:       strings.TrimSpace(name),
			Email:      email,
			HospitalID: h.ID,
			CreatedAt:  stamp,
			UpdatedAt:  stamp,
		},
		hash: hash,
	}
	d.byID[acct.user.ID] = acct
	d.byEmail[email] = acct
	return acct.user, h.Hospital, nil
}

func (d *directory) authenticate(email, password string) (api.User, error) {
	d.mu.RLock()
	acct, ok := d.byEmail[normalizeEmail(email)]
	d.mu.RUnlock()
	if !ok {
		return api.User{}, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return api.User{}, errBadCredentials
	}
	return acct.user, nil
}

func (d *directory) user(id int64) (api.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acct, ok := d.byID[id]
	if !ok {
		return api.User{}, false
	}
	return acct.user, true
}

// members lists the other users of id's hospital, sorted by name.
func (d *directory) members(id int64) ([]api.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	self, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	out := []api.User{}
	for _, acct := range d.byID {
		if acct.user.ID != id && acct.user.HospitalID == self.user.HospitalID {
			out = append(out, acct.user)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, true
}
