package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a player has no active quiz session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionNotInProgress is returned when answers or advances arrive outside a running quiz.
	ErrSessionNotInProgress = errors.New("quiz session not in progress")
	// ErrSessionAlreadyStarted is returned when Start is called twice on the same session.
	ErrSessionAlreadyStarted = errors.New("quiz session already started")
	// ErrNoQuestions rejects sessions that would have nothing to ask.
	ErrNoQuestions = errors.New("quiz session requires at least one question")
	// ErrThemeNotFound indicates the theme's question bank could not be located.
	ErrThemeNotFound = errors.New("theme not found")
	// ErrMalformedTheme indicates the question bank exists but cannot be used.
	ErrMalformedTheme = errors.New("malformed theme")
	// ErrOptionNotFound indicates a submitted answer index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrStaleQuestion rejects input aimed at a question that is no longer open (timed out or already answered).
	ErrStaleQuestion = errors.New("question is no longer open")
	// ErrProfileNotFound is returned by read-only profile lookups for unknown users.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidUsername rejects blank usernames at login.
	ErrInvalidUsername = errors.New("username must not be blank")
)
