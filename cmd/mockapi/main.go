// mockapi is a development stand-in for the BPS Energy backend. It
// implements the /mobile/* surface with in-memory state so the daemon and
// manual QA can run against something live. It also documents the wire
// contract the real backend follows.
package main

import (
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/api"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/logger"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type account struct {
	user     api.User
	password string
}

type liveSession struct {
	session   api.Session
	startedAt time.Time
	tariff    float64
}

type server struct {
	secret []byte

	mu            sync.Mutex
	accounts      map[string]*account // keyed by phone
	pendingOTP    map[string]api.SignUpRequest
	refreshTokens map[string]string // refresh token -> user id
	sessions      map[string]*liveSession
	transactions  []api.Transaction
	prefs         map[string]api.NotificationPrefs // user id -> prefs
	pushTokens    map[string]string
	locations     []api.Location
}

func newServer(secret string) *server {
	s := &server{
		secret:        []byte(secret),
		accounts:      map[string]*account{},
		pendingOTP:    map[string]api.SignUpRequest{},
		refreshTokens: map[string]string{},
		sessions:      map[string]*liveSession{},
		prefs:         map[string]api.NotificationPrefs{},
		pushTokens:    map[string]string{},
	}
	// seeded demo account and stations
	s.accounts["+375291112233"] = &account{
		user:     api.User{ID: "u-demo", Name: "Demo Driver", Email: "demo@bps.energy", Phone: "+375291112233"},
		password: "demo1234",
	}
	s.locations = []api.Location{
		{
			ID: "loc-1", Name: "Minsk Central", Address: "Niamiha 5", Latitude: 53.905, Longitude: 27.554,
			Connectors: []api.Connector{
				{ID: "42", Type: "CCS2", Power: 60, Status: "available", Tariff: 0.39},
				{ID: "43", Type: "CHAdeMO", Power: 50, Status: "available", Tariff: 0.39},
			},
		},
		{
			ID: "loc-2", Name: "Uruchcha Park", Address: "Rusiyanava 1", Latitude: 53.945, Longitude: 27.688,
			Connectors: []api.Connector{
				{ID: "17", Type: "Type2", Power: 22, Status: "available", Tariff: 0.29},
			},
		},
	}
	return s
}

func (s *server) issueTokens(userID string) api.TokenPair {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(accessTTL).Unix(),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = userID
	return api.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(accessTTL.Seconds()),
		RefreshExpiresIn: int64(refreshTTL.Seconds()),
	}
}

// authMiddleware verifies the bearer JWT and stores the subject in the
// request context.
func (s *server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		tok, err := jwt.Parse(auth[len(prefix):], func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}
		sub, err := tok.Claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token has no subject"})
			return
		}
		c.Set("userID", sub)
		c.Next()
	}
}

func (s *server) signIn(c *gin.Context) {
	var req api.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[req.Phone]
	if !ok || acc.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, s.issueTokens(acc.user.ID))
}

func (s *server) signUp(c *gin.Context) {
	var req api.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Phone]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": "phone already registered"})
		return
	}
	s.pendingOTP[req.Phone] = req
	logger.Infof("mockapi: OTP for %s is 000000", req.Phone)
	c.Status(http.StatusNoContent)
}

func (s *server) confirmOTP(c *gin.Context) {
	var req api.ConfirmOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.pendingOTP[req.Phone]
	if !ok || req.Code != "000000" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid code"})
		return
	}
	delete(s.pendingOTP, req.Phone)
	acc := &account{
		user:     api.User{ID: "u-" + uuid.NewString()[:8], Name: pending.Name, Email: pending.Email, Phone: pending.Phone},
		password: pending.Password,
	}
	s.accounts[req.Phone] = acc
	c.JSON(http.StatusOK, s.issueTokens(acc.user.ID))
}

func (s *server) refreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "refresh token invalid or revoked"})
		return
	}
	// rotation: the old token is single-use
	delete(s.refreshTokens, req.RefreshToken)
	c.JSON(http.StatusOK, s.issueTokens(userID))
}

func (s *server) logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&req)
	s.mu.Lock()
	delete(s.refreshTokens, req.RefreshToken)
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *server) userByID(id string) *api.User {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return &acc.user
		}
	}
	return nil
}

func (s *server) getUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByID(c.GetString("userID"))
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *server) updateUser(c *gin.Context) {
	var upd api.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByID(c.GetString("userID"))
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	c.JSON(http.StatusOK, u)
}

// advance simulates charging progress since the session started.
// Callers must hold s.mu.
func (ls *liveSession) advance() api.Session {
	elapsed := time.Since(ls.startedAt)
	sess := ls.session
	sess.EnergyReceived = sess.Power * elapsed.Hours()
	sess.Battery = 20 + int(elapsed/time.Minute)
	if sess.Battery >= 100 {
		sess.Battery = 100
		sess.Status = api.SessionStatusFinished
	}
	sess.TimeLeft = (100 - sess.Battery) * 60
	sess.Cost = sess.EnergyReceived * ls.tariff
	ls.session = sess
	return sess
}

func (s *server) getSessions(c *gin.Context) {
	stationID := c.Query("station_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.Session{}
	for _, ls := range s.sessions {
		sess := ls.advance()
		if sess.Status != api.SessionStatusCharging {
			continue
		}
		if stationID != "" && sess.StationID != stationID {
			continue
		}
		out = append(out, sess)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *server) startSession(c *gin.Context) {
	var req struct {
		ConnectorID string `json:"connector_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ConnectorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "connector_id required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var conn *api.Connector
	var stationID string
	for i := range s.locations {
		for j := range s.locations[i].Connectors {
			if s.locations[i].Connectors[j].ID == req.ConnectorID {
				conn = &s.locations[i].Connectors[j]
				stationID = s.locations[i].ID
			}
		}
	}
	if conn == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "connector not found"})
		return
	}
	if conn.Status != "available" {
		c.JSON(http.StatusConflict, gin.H{"message": "connector busy"})
		return
	}
	conn.Status = "occupied"

	sess := api.Session{
		ID:          uuid.NewString(),
		StationID:   stationID,
		ConnectorID: conn.ID,
		Battery:     20,
		Power:       conn.Power,
		Status:      api.SessionStatusCharging,
	}
	s.sessions[sess.ID] = &liveSession{session: sess, startedAt: time.Now(), tariff: conn.Tariff}
	logger.Infof("mockapi: session %s started on connector %s", sess.ID, conn.ID)
	c.JSON(http.StatusOK, sess)
}

func (s *server) stopSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "session_id required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[req.SessionID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}
	final := ls.advance()
	delete(s.sessions, req.SessionID)
	for i := range s.locations {
		for j := range s.locations[i].Connectors {
			if s.locations[i].Connectors[j].ID == final.ConnectorID {
				s.locations[i].Connectors[j].Status = "available"
			}
		}
	}
	s.transactions = append(s.transactions, api.Transaction{
		ID:        uuid.NewString(),
		SessionID: final.ID,
		Amount:    final.Cost,
		Currency:  "BYN",
		CreatedAt: time.Now(),
	})
	logger.Infof("mockapi: session %s stopped, %.2f kWh delivered", final.ID, final.EnergyReceived)
	c.Status(http.StatusNoContent)
}

func (s *server) getTransactions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"transactions": s.transactions})
}

func (s *server) getLocations(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"locations": s.locations})
}

func (s *server) getLocation(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loc := range s.locations {
		if loc.ID == id {
			c.JSON(http.StatusOK, loc)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "location not found"})
}

func (s *server) getNotificationPrefs(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.prefs[c.GetString("userID")])
}

func (s *server) putNotificationPrefs(c *gin.Context) {
	var p api.NotificationPrefs
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	s.prefs[c.GetString("userID")] = p
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *server) registerFCM(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "token required"})
		return
	}
	s.mu.Lock()
	s.pushTokens[c.GetString("userID")] = req.Token
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *server) routes(r *gin.Engine) {
	m := r.Group("/mobile")
	m.POST("/sign-in", s.signIn)
	m.POST("/sign-up", s.signUp)
	m.POST("/confirm-otp", s.confirmOTP)
	m.POST("/refresh-token", s.refreshToken)

	authed := m.Group("", s.authMiddleware())
	authed.POST("/logout", s.logout)
	authed.GET("/user", s.getUser)
	authed.PATCH("/user", s.updateUser)
	authed.GET("/charging-sessions", s.getSessions)
	authed.POST("/start-session", s.startSession)
	authed.POST("/stop-session", s.stopSession)
	authed.GET("/transactions", s.getTransactions)
	authed.GET("/locations", s.getLocations)
	authed.GET("/locations/:id", s.getLocation)
	authed.GET("/user-notifications", s.getNotificationPrefs)
	authed.PUT("/user-notifications", s.putNotificationPrefs)
	authed.POST("/fcm", s.registerFCM)
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	addr := os.Getenv("MOCKAPI_ADDR")
	if addr == "" {
		addr = ":8089"
	}
	secret := os.Getenv("MOCKAPI_JWT_SECRET")
	if secret == "" {
		secret = "mockapi-dev-secret"
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	srv := newServer(secret)
	srv.routes(r)

	logger.Infof("mockapi listening on %s (demo account +375291112233 / demo1234)", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("mockapi: %v", err)
	}
}
