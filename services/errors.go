package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed    = errors.New("validation failed")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrUserAlreadyInTeam   = errors.New("user has already reserved a team slot")
	ErrTeamNotAvailable    = errors.New("team is not available for reservation")
	ErrInvalidRefCode      = errors.New("referral code is invalid")
	ErrSelfReferral        = errors.New("cannot use own referral code")
	ErrReferrerAlreadySet  = errors.New("referrer is already set")
	ErrInvalidDuration     = errors.New("durations must be positive")
	ErrInvalidAutoInterval = errors.New("auto restart interval must be positive")

	// Ошибки жизненного цикла турнира
	ErrTournamentRunning    = errors.New("tournament is already running")
	ErrTournamentNotRunning = errors.New("tournament is not running")
	ErrNotEnoughTeams       = errors.New("not enough teams for a full bracket")
	ErrMatchNotActive       = errors.New("match is not active")
	ErrMatchAlreadyStarted  = errors.New("match is already started")
	ErrFeedUnhealthy        = errors.New("price feed is not healthy")

	// Ошибки, специфичные для сущностей
	ErrTeamNotFound     = errors.New("team not found")
	ErrMatchNotFound    = errors.New("match not found")
	ErrSettingsNotFound = errors.New("tournament settings not found")
	ErrFinanceNotFound  = errors.New("user finance record not found")
	ErrResultsNotFound  = errors.New("tournament results not found")
)
