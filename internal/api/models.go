package api

import "time"

// SignInRequest exchanges credentials for a token pair.
type SignInRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// SignUpRequest registers a new account and triggers an OTP to the phone.
type SignUpRequest struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// ConfirmOTPRequest completes registration with the code sent by sign-up.
type ConfirmOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// User is the account profile.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UserUpdate carries the patchable profile fields; nil means unchanged.
type UserUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Session is an active charging session as reported by the backend.
type Session struct {
	ID             string  `json:"id"`
	StationID      string  `json:"station_id"`
	ConnectorID    string  `json:"connector_id"`
	Battery        int     `json:"battery"`
	Power          float64 `json:"power"`
	EnergyReceived float64 `json:"energy_received"`
	TimeLeft       int     `json:"time_left"`
	Cost           float64 `json:"cost"`
	Status         string  `json:"status"`
}

// Session status values used by the backend.
const (
	SessionStatusCharging = "charging"
	SessionStatusFinished = "finished"
)

// Connector is a single plug at a station.
type Connector struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Power  float64 `json:"power"`
	Status string  `json:"status"`
	Tariff float64 `json:"tariff"`
}

// Location is a charging station with its connectors.
type Location struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Connectors []Connector `json:"connectors"`
}

// Transaction is a completed payment record.
type Transaction struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPrefs are the user's push-notification toggles.
type NotificationPrefs struct {
	ChargeComplete bool `json:"charge_complete"`
	Promotions     bool `json:"promotions"`
	News           bool `json:"news"`
}

type startSessionRequest struct {
	ConnectorID string `json:"connector_id"`
}

type stopSessionRequest struct {
	SessionID string `json:"session_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type registerPushRequest struct {
	Token string `json:"token"`
}

type sessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

type locationsResponse struct {
	Locations []Location `json:"locations"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
