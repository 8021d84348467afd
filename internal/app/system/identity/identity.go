// Package identity resolves raw roster tokens (usernames or emails, any
// case) to known users.
//
// Resolution never fails on an unknown token: each token is either
// resolved to a user or reported back verbatim as not found. Only storage
// errors are returned as errors.
package identity

import (
	"context"
	"strings"

	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lookup is the storage side of resolution. Usernames are passed already
// folded with normalize.Username, emails with normalize.Email.
type Lookup interface {
	FindByUsernames(ctx context.Context, usernamesCI []string) ([]models.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]models.User, error)
}

// Result collects the per-token resolutions of one Resolve call.
type Result struct {
	// Users holds each matched user once, in order of first match.
	Users []models.User
	// NotFound holds unmatched tokens verbatim, in input order.
	NotFound []string
}

// Usernames returns the usernames of the resolved users.
func (r Result) Usernames() []string {
	out := make([]string, 0, len(r.Users))
	for _, u := range r.Users {
		out = append(out, u.Username)
	}
	return out
}

// Resolver matches tokens against usernames first, then emails.
type Resolver struct {
	lookup Lookup
}

// New creates a Resolver backed by lookup.
func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve matches each token case-insensitively against usernames; tokens
// with no username match are then matched against emails. Blank tokens
// are ignored. Two tokens naming the same user yield that user once.
func (r *Resolver) Resolve(ctx context.Context, tokens []string) (Result, error) {
	var res Result
	if len(tokens) == 0 {
		return res, nil
	}

	nameKeys := distinct(tokens, normalize.Username)
	byName := make(map[string]*models.User, len(nameKeys))
	if len(nameKeys) > 0 {
		users, err := r.lookup.FindByUsernames(ctx, nameKeys)
		if err != nil {
			return Result{}, err
		}
		for i := range users {
			byName[users[i].UsernameCI] = &users[i]
		}
	}

	var emailKeys []string
	seenEmail := make(map[string]struct{})
	for _, tok := range tokens {
		if _, ok := byName[normalize.Username(tok)]; ok {
			continue
		}
		e := normalize.Email(tok)
		if !strings.Contains(e, "@") {
			continue
		}
		if _, dup := seenEmail[e]; !dup {
			seenEmail[e] = struct{}{}
			emailKeys = append(emailKeys, e)
		}
	}
	byEmail := make(map[string]*models.User, len(emailKeys))
	if len(emailKeys) > 0 {
		users, err := r.lookup.FindByEmails(ctx, emailKeys)
		if err != nil {
			return Result{}, err
		}
		for i := range users {
			byEmail[normalize.Email(users[i].Email)] = &users[i]
		}
	}

	seenUser := make(map[primitive.ObjectID]struct{})
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		u, ok := byName[normalize.Username(tok)]
		if !ok {
			u, ok = byEmail[normalize.Email(tok)]
		}
		if !ok {
			res.NotFound = append(res.NotFound, tok)
			continue
		}
		if _, dup := seenUser[u.ID]; !dup {
			seenUser[u.ID] = struct{}{}
			res.Users = append(res.Users, *u)
		}
	}
	return res, nil
}

func distinct(tokens []string, key func(string) string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		k := key(t)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
