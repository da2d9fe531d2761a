// Package admin implements the operator commands run against the database
// directly: inspection, export, bulk deletion and account repair.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/models"
	"github.com/starford/mindmaps/internal/password"
	"github.com/starford/mindmaps/internal/store"
)

const previewLength = 100

// Manager runs admin commands and prints their reports to out.
type Manager struct {
	db     *store.DB
	hasher *password.Hasher
	policy password.Policy
	out    io.Writer
	now    func() time.Time
}

// New creates a Manager.
func New(db *store.DB, hasher *password.Hasher, policy password.Policy, out io.Writer) *Manager {
	return &Manager{db: db, hasher: hasher, policy: policy, out: out, now: time.Now}
}

// ViewUsers prints every user with the ids and titles of their maps.
func (m *Manager) ViewUsers(ctx context.Context) error {
	users, err := m.db.Users().List(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(m.out, "No users found.")
		return nil
	}

	tw := tabwriter.NewWriter(m.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tHINT\tMAPS\tMAP IDS")
	for _, u := range users {
		maps, err := m.db.Maps().ListByOwner(ctx, u.ID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(maps))
		for _, mm := range maps {
			ids = append(ids, fmt.Sprint(mm.ID))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", u.ID, u.Email, orNA(u.Hint), len(maps), orNA(strings.Join(ids, ", ")))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "\nTotal users: %d\n", len(users))
	return nil
}

// ViewMaps prints every map with its owner and a preview of its data.
func (m *Manager) ViewMaps(ctx context.Context) error {
	maps, err := m.db.Maps().ListWithOwner(ctx)
	if err != nil {
		return err
	}
	if len(maps) == 0 {
		fmt.Fprintln(m.out, "No mind maps found.")
		return nil
	}

	tw := tabwriter.NewWriter(m.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tOWNER\tUPDATED\tDATA")
	for _, mm := range maps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			mm.ID, mm.Title, mm.OwnerEmail, mm.UpdatedAt.UTC().Format(time.RFC3339), Preview(mm.Data))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "\nTotal maps: %d\n", len(maps))
	return nil
}

// ViewAll prints users followed by maps.
func (m *Manager) ViewAll(ctx context.Context) error {
	if err := m.ViewUsers(ctx); err != nil {
		return err
	}
	fmt.Fprintln(m.out)
	return m.ViewMaps(ctx)
}

// Preview shortens data to previewLength runes, marking truncation with "...".
func Preview(data string) string {
	data = strings.Join(strings.Fields(data), " ")
	r := []rune(data)
	if len(r) <= previewLength {
		return data
	}
	return string(r[:previewLength]) + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// DeleteUsers removes the given users and their maps. Without force it only
// reports what would be removed. It returns the number of users and maps deleted.
func (m *Manager) DeleteUsers(ctx context.Context, ids []int64, force bool) (int, int, error) {
	var users, maps int
	err := m.db.WithTx(ctx, func(ctx context.Context, ur *store.Users, mr *store.Maps) error {
		type target struct {
			user *models.User
			maps int
		}
		var targets []target
		for _, id := range ids {
			u, err := ur.FindByID(ctx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				fmt.Fprintf(m.out, "User %d not found, skipping.\n", id)
				continue
			}
			if err != nil {
				return err
			}
			owned, err := mr.ListByOwner(ctx, id)
			if err != nil {
				return err
			}
			targets = append(targets, target{user: u, maps: len(owned)})
		}
		if len(targets) == 0 {
			fmt.Fprintln(m.out, "No users found with the provided ids.")
			return nil
		}

		if !force {
			fmt.Fprintln(m.out, "The following users would be permanently deleted:")
			total := 0
			for _, t := range targets {
				fmt.Fprintf(m.out, "  - User %d: %s (%d maps)\n", t.user.ID, t.user.Email, t.maps)
				total += t.maps
			}
			fmt.Fprintf(m.out, "Total maps: %d\nRe-run with --force to delete.\n", total)
			return nil
		}

		for _, t := range targets {
			if err := ur.Delete(ctx, t.user.ID); err != nil {
				return err
			}
			users++
			maps += t.maps
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if force && users > 0 {
		fmt.Fprintf(m.out, "Deleted %d users and %d maps.\n", users, maps)
	}
	return users, maps, nil
}

// DeleteMaps removes the given maps regardless of owner. Without force it only
// reports what would be removed.
func (m *Manager) DeleteMaps(ctx context.Context, ids []int64, force bool) (int, error) {
	var deleted int
	err := m.db.WithTx(ctx, func(ctx context.Context, ur *store.Users, mr *store.Maps) error {
		var targets []*models.MindMap
		for _, id := range ids {
			mm, err := mr.FindByID(ctx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				fmt.Fprintf(m.out, "Map %d not found, skipping.\n", id)
				continue
			}
			if err != nil {
				return err
			}
			targets = append(targets, mm)
		}
		if len(targets) == 0 {
			fmt.Fprintln(m.out, "No maps found with the provided ids.")
			return nil
		}

		if !force {
			fmt.Fprintln(m.out, "The following maps would be permanently deleted:")
			for _, mm := range targets {
				owner := "unknown"
				if u, err := ur.FindByID(ctx, mm.UserID); err == nil {
					owner = u.Email
				}
				fmt.Fprintf(m.out, "  - Map %d: %s (owner: %s)\n", mm.ID, mm.Title, owner)
			}
			fmt.Fprintln(m.out, "Re-run with --force to delete.")
			return nil
		}

		for _, mm := range targets {
			if err := mr.DeleteByID(ctx, mm.ID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if force && deleted > 0 {
		fmt.Fprintf(m.out, "Deleted %d maps.\n", deleted)
	}
	return deleted, nil
}

// SetPassword replaces the password of user id. The new password must satisfy
// the same policy as signup.
func (m *Manager) SetPassword(ctx context.Context, id int64, pw string) error {
	if err := m.policy.Check(pw); err != nil {
		return err
	}
	hash, err := m.hasher.Hash(pw)
	if err != nil {
		return err
	}
	if err := m.db.Users().UpdatePasswordHash(ctx, id, hash); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "User %d password updated.\n", id)
	return nil
}

// SetEmail changes the email of user id.
func (m *Manager) SetEmail(ctx context.Context, id int64, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("email", "cannot be blank")
	}
	if err := m.db.Users().UpdateEmail(ctx, id, email); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return fmt.Errorf("email %q: %w", email, apperr.ErrDuplicateEmail)
		}
		return err
	}
	fmt.Fprintf(m.out, "User %d email updated to %s.\n", id, email)
	return nil
}

// RenameMap changes the title of map id regardless of owner.
func (m *Manager) RenameMap(ctx context.Context, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Validation("title", "cannot be blank")
	}
	if err := m.db.Maps().UpdateTitle(ctx, id, title, m.now().UTC()); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Map %d renamed to %q.\n", id, title)
	return nil
}
