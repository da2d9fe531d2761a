package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/starford/mindmaps/internal/store"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportedUser is a full user row, hashes included, for backups.
type ExportedUser struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"password_hash"`
	SecurityQuestion   string    `json:"security_question"`
	SecurityAnswerHash string    `json:"security_answer_hash"`
	Hint               string    `json:"hint"`
	CreatedAt          time.Time `json:"created_at"`
}

// Snapshot is the JSON export document.
type Snapshot struct {
	ExportDate time.Time            `json:"export_date"`
	Users      []ExportedUser       `json:"users"`
	MindMaps   []store.MapWithOwner `json:"mindmaps"`
}

// Snapshot reads every user and map.
func (m *Manager) Snapshot(ctx context.Context) (*Snapshot, error) {
	users, err := m.db.Users().List(ctx)
	if err != nil {
		return nil, err
	}
	maps, err := m.db.Maps().ListWithOwner(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ExportDate: m.now().UTC(),
		Users:      make([]ExportedUser, 0, len(users)),
		MindMaps:   maps,
	}
	for _, u := range users {
		snap.Users = append(snap.Users, ExportedUser{
			ID:                 u.ID,
			Email:              u.Email,
			PasswordHash:       u.PasswordHash,
			SecurityQuestion:   u.SecurityQuestion,
			SecurityAnswerHash: u.SecurityAnswerHash,
			Hint:               u.Hint,
			CreatedAt:          u.CreatedAt,
		})
	}
	return snap, nil
}

// Export writes the database to output in format and returns the files
// written. An empty output picks a timestamped name. CSV produces two files,
// <base>_users.csv and <base>_maps.csv.
func (m *Manager) Export(ctx context.Context, format, output string) ([]string, error) {
	format = strings.ToLower(format)
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		return nil, fmt.Errorf("admin: unknown export format %q", format)
	}

	snap, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = fmt.Sprintf("mindmap_export_%s.%s", snap.ExportDate.Format("20060102_150405"), format)
	}

	var files []string
	switch format {
	case FormatJSON:
		if err := writeJSONFile(output, snap); err != nil {
			return nil, err
		}
		files = []string{output}
	case FormatCSV:
		base := strings.TrimSuffix(output, ".csv")
		usersFile, mapsFile := base+"_users.csv", base+"_maps.csv"
		if err := writeCSVFile(usersFile, userRecords(snap.Users)); err != nil {
			return nil, err
		}
		if err := writeCSVFile(mapsFile, mapRecords(snap.MindMaps)); err != nil {
			return nil, err
		}
		files = []string{usersFile, mapsFile}
	}

	for _, f := range files {
		fmt.Fprintf(m.out, "Exported to %s\n", f)
	}
	fmt.Fprintf(m.out, "Exported %d users and %d maps.\n", len(snap.Users), len(snap.MindMaps))
	return files, nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func writeJSONFile(path string, v any) error {
	f, err := create(path)
	if err != nil {
		return fmt.Errorf("admin: create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("admin: write %s: %w", path, err)
	}
	return f.Close()
}

func writeCSVFile(path string, records [][]string) error {
	f, err := create(path)
	if err != nil {
		return fmt.Errorf("admin: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("admin: write %s: %w", path, err)
	}
	return f.Close()
}

func userRecords(users []ExportedUser) [][]string {
	out := [][]string{{"id", "email", "password_hash", "security_question", "security_answer_hash", "hint", "created_at"}}
	for _, u := range users {
		out = append(out, []string{
			strconv.FormatInt(u.ID, 10),
			u.Email,
			u.PasswordHash,
			u.SecurityQuestion,
			u.SecurityAnswerHash,
			u.Hint,
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func mapRecords(maps []store.MapWithOwner) [][]string {
	out := [][]string{{"id", "title", "data", "user_id", "created_at", "updated_at", "owner_email"}}
	for _, mm := range maps {
		out = append(out, []string{
			strconv.FormatInt(mm.ID, 10),
			mm.Title,
			mm.Data,
			strconv.FormatInt(mm.UserID, 10),
			mm.CreatedAt.UTC().Format(time.RFC3339),
			mm.UpdatedAt.UTC().Format(time.RFC3339),
			mm.OwnerEmail,
		})
	}
	return out
}
