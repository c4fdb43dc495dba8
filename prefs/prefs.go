package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Fixed storage keys.
const (
	KeyLanguage      = "autotrans_language"
	KeyPageState     = "autotrans_page_state"
	KeyProfilePrefix = "autotrans_profile:"
)

// PageState is the reading position saved for one language.
type PageState struct {
	ScrollY   float64   `json:"scroll_y"`
	FocusedID string    `json:"focused_id,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// Profile is a teacher's profile.
type Profile struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	PhoneNumber      string `json:"phone_number,omitempty"`
	TeachingGrades   []int  `json:"teaching_grades,omitempty"`
	PrimaryGrade     int    `json:"primary_grade,omitempty"`
	SchoolName       string `json:"school_name,omitempty"`
	District         string `json:"district,omitempty"`
	State            string `json:"state,omitempty"`
	PreferredLang    string `json:"preferred_language,omitempty"`
	ProfileCompleted bool   `json:"profile_completed"`
}

// Preferences reads and writes preferences through a KV.
type Preferences struct {
	kv KV
	mu sync.Mutex // serialises read-modify-write of the page state map
}

// New creates Preferences over kv.
func New(kv KV) *Preferences {
	return &Preferences{kv: kv}
}

// Language returns the persisted language, if any.
func (p *Preferences) Language(ctx context.Context) (string, bool, error) {
	return p.kv.Get(ctx, KeyLanguage)
}

// SetLanguage persists the active language.
func (p *Preferences) SetLanguage(ctx context.Context, code string) error {
	return p.kv.Set(ctx, KeyLanguage, code)
}

// PageStates returns every saved page state keyed by language. A corrupt
// stored value reads as empty.
func (p *Preferences) PageStates(ctx context.Context) (map[string]PageState, error) {
	raw, ok, err := p.kv.Get(ctx, KeyPageState)
	if err != nil {
		return nil, err
	}
	states := make(map[string]PageState)
	if !ok {
		return states, nil
	}
	if err := json.Unmarshal([]byte(raw), &states); err != nil {
		return make(map[string]PageState), nil
	}
	return states, nil
}

// PageState returns the saved page state for lang.
func (p *Preferences) PageState(ctx context.Context, lang string) (PageState, bool, error) {
	states, err := p.PageStates(ctx)
	if err != nil {
		return PageState{}, false, err
	}
	st, ok := states[lang]
	return st, ok, nil
}

// SavePageState merges st under lang into the stored map. Other languages'
// entries are kept.
func (p *Preferences) SavePageState(ctx context.Context, lang string, st PageState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	states, err := p.PageStates(ctx)
	if err != nil {
		return err
	}
	states[lang] = st

	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("encoding page state: %w", err)
	}
	return p.kv.Set(ctx, KeyPageState, string(data))
}

// Profile returns the stored profile of user.
func (p *Preferences) Profile(ctx context.Context, user string) (*Profile, bool, error) {
	raw, ok, err := p.kv.Get(ctx, KeyProfilePrefix+user)
	if err != nil || !ok {
		return nil, false, err
	}
	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, false, fmt.Errorf("decoding profile of %s: %w", user, err)
	}
	return &profile, true, nil
}

// SetProfile stores the profile of user.
func (p *Preferences) SetProfile(ctx context.Context, user string, profile *Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile of %s: %w", user, err)
	}
	return p.kv.Set(ctx, KeyProfilePrefix+user, string(data))
}

// DeleteProfile removes the profile of user, as on sign-out.
func (p *Preferences) DeleteProfile(ctx context.Context, user string) error {
	return p.kv.Delete(ctx, KeyProfilePrefix+user)
}
