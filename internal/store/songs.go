package store

import (
	"database/sql"
	"fmt"
	"strings"
)

func validateSong(s *Song) error {
	var violations []Violation
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		violations = append(violations, NewViolation("title", "missing required value", nil))
	}
	if s.ReleaseID == 0 {
		violations = append(violations, NewViolation("release_id", "missing required value", nil))
	}
	if len(violations) > 0 {
		return invalid("song", violations...)
	}
	return nil
}

// InsertSong inserts song and sets song.ID. With orIgnore set an existing
// song with the same title on the same release is left alone and false is
// returned.
func (t *Tx) InsertSong(song *Song, orIgnore bool) (bool, error) {
	id, ok, err := t.insert(TableSongs, `
		INSERT INTO songs (release_id, title, youtube_url)
		VALUES (?, ?, ?)`, orIgnore,
		song.ReleaseID, song.Title, song.YouTubeURL)
	if err != nil || !ok {
		return false, err
	}
	song.ID = id
	return true, nil
}

// AddSong inserts a song and sets song.ID
func (s *Store) AddSong(song *Song) error {
	if err := validateSong(song); err != nil {
		return err
	}

	return s.Transaction(func(tx *Tx) error {
		if err := tx.requireRow("song", TableReleases, "release_id", song.ReleaseID); err != nil {
			return err
		}
		_, err := tx.InsertSong(song, false)
		return err
	})
}

// UpdateSong replaces every column of the song with id song.ID
func (s *Store) UpdateSong(song *Song) error {
	if err := validateSong(song); err != nil {
		return err
	}

	return s.Transaction(func(tx *Tx) error {
		if err := tx.requireRow("song", TableReleases, "release_id", song.ReleaseID); err != nil {
			return err
		}
		n, err := tx.exec(TableSongs, `
			UPDATE songs SET release_id = ?, title = ?, youtube_url = ?
			WHERE song_id = ?`,
			song.ReleaseID, song.Title, song.YouTubeURL, song.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("song", "song_id", song.ID)
		}
		return nil
	})
}

// DeleteSong removes a song
func (s *Store) DeleteSong(id int64) error {
	return s.Transaction(func(tx *Tx) error {
		n, err := tx.exec(TableSongs, "DELETE FROM songs WHERE song_id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("song", "song_id", id)
		}
		return nil
	})
}

// DeleteSongsByRelease removes every song of a release and returns how many there were
func (s *Store) DeleteSongsByRelease(releaseID int64) (int64, error) {
	var n int64
	err := s.Transaction(func(tx *Tx) error {
		var err error
		n, err = tx.exec(TableSongs, "DELETE FROM songs WHERE release_id = ?", releaseID)
		return err
	})
	return n, err
}

// GetSong returns the song with the given id, or nil if there is none
func (s *Store) GetSong(id int64) (*Song, error) {
	song := &Song{}
	err := s.db.QueryRow(`
		SELECT song_id, release_id, title, youtube_url
		FROM songs WHERE song_id = ?
	`, id).Scan(&song.ID, &song.ReleaseID, &song.Title, &song.YouTubeURL)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", err)
	}
	return song, nil
}

// ListSongsForRelease returns the songs of a release in insertion order
func (s *Store) ListSongsForRelease(releaseID int64) ([]Song, error) {
	rows, err := s.db.Query(`
		SELECT song_id, release_id, title, youtube_url
		FROM songs
		WHERE release_id = ?
		ORDER BY song_id
	`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		var song Song
		if err := rows.Scan(&song.ID, &song.ReleaseID, &song.Title, &song.YouTubeURL); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, song)
	}

	return songs, rows.Err()
}

// SearchSongs returns the songs matching every set field of f together
// with their release and group
func (s *Store) SearchSongs(f SongFilter) ([]SongHit, error) {
	var where []string
	var args []any

	if title := strings.TrimSpace(f.Title); title != "" {
		where = append(where, containsClause("s.title"))
		args = append(args, Fold(title))
	}
	if group := strings.TrimSpace(f.Group); group != "" {
		where = append(where, "g.group_name = ?")
		args = append(args, group)
	}
	if f.Language != "" {
		where = append(where, "r.release_lang = ?")
		args = append(args, string(f.Language))
	}

	query := `
		SELECT s.song_id, s.release_id, s.title, s.youtube_url,
			r.release_name, r.release_type, r.release_lang, g.group_id, g.group_name
		FROM songs s
		JOIN releases r ON r.release_id = s.release_id
		JOIN groups g ON g.group_id = r.group_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY g.group_name COLLATE NOCASE, r.release_name COLLATE NOCASE, s.song_id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	defer rows.Close()

	hits := []SongHit{}
	for rows.Next() {
		var h SongHit
		if err := rows.Scan(&h.ID, &h.ReleaseID, &h.Title, &h.YouTubeURL,
			&h.ReleaseName, &h.ReleaseType, &h.Language, &h.GroupID, &h.GroupName); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		hits = append(hits, h)
	}

	return hits, rows.Err()
}
