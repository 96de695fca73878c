// internal/server/server.go
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"giftswap/internal/auth"
	"giftswap/internal/cache"
	"giftswap/internal/models"
	"giftswap/internal/session"
	"giftswap/internal/store"
)

// Server is the HTTP surface: user creation, room lookup by code, and
// the websocket upgrade into the session coordinator.
type Server struct {
	router *gin.Engine
	store  store.Store
	cache  *cache.Cache
	auth   *auth.Service
	coord  *session.Coordinator
}

// New builds the router. appEnv selects gin's mode.
func New(st store.Store, ca *cache.Cache, au *auth.Service, coord *session.Coordinator, appEnv string) *Server {
	if appEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		router: gin.New(),
		store:  st,
		cache:  ca,
		auth:   au,
		coord:  coord,
	}
	s.router.Use(gin.Recovery(), requestLogger())

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := s.router.Group("/api")
	{
		api.POST("/users", s.createUser)
		api.GET("/rooms/:code", s.lookupRoom)
	}
	s.router.GET("/ws", s.serveWS)
	return s
}

// Handler exposes the router for an http.Server.
func (s *Server) Handler() http.Handler { return s.router }

type createUserRequest struct {
	Name string `json:"name" binding:"required"`
}

// createUser registers a display name and returns the user with a
// token for the websocket. Names are unique.
func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	u := &models.User{ID: uuid.New(), Name: req.Name, CreatedAt: time.Now()}
	err := s.store.CreateUser(c.Request.Context(), u)
	if errors.Is(err, store.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "name already taken"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := s.auth.Mint(u.ID, u.Name)
	if err != nil {
		logrus.WithError(err).Error("mint token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u, "token": token})
}

type roomMember struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Status string    `json:"connectionStatus"`
}

// lookupRoom resolves a join code to owner and membership info. Game
// internals (turn order, gifts, log) are only available over the
// websocket. The code -> id mapping is served from Redis when warm.
func (s *Server) lookupRoom(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	ctx := c.Request.Context()

	cachedID, err := s.cache.RoomLookup(ctx, code)
	if err != nil {
		logrus.WithError(err).Warn("room lookup cache read failed")
	}

	room, err := s.store.GetRoomByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("lookup room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if cachedID == uuid.Nil {
		if err := s.cache.SetRoomLookup(ctx, code, room.ID); err != nil {
			logrus.WithError(err).Warn("room lookup cache set failed")
		}
	}

	participants, err := s.store.ListParticipants(ctx, room.ID)
	if err != nil {
		logrus.WithError(err).Error("lookup room participants")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	members := make([]roomMember, 0, len(participants))
	ownerName := ""
	for _, p := range participants {
		if p.UserID == room.OwnerID {
			ownerName = p.Name
		}
		members = append(members, roomMember{
			UserID: p.UserID,
			Name:   p.Name,
			Status: string(p.Connection),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         room.Code,
		"status":       room.Status,
		"ownerId":      room.OwnerID,
		"ownerName":    ownerName,
		"participants": members,
	})
}

// serveWS authenticates the request, upgrades it, and hands the socket
// to the coordinator. The user's identity is taken from the token for
// the life of the connection.
func (s *Server) serveWS(c *gin.Context) {
	token := bearerToken(c.Request)
	if token == "" {
		token = c.Query("token")
	}
	userID, name, err := s.auth.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Debug("websocket accept failed")
		return
	}

	client := session.NewClient(ws, userID, name)
	if err := s.coord.Register(client); err != nil {
		client.Kick(err.Error())
		return
	}
	client.ReadLoop(c.Request.Context(), s.coord)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return after
	}
	return ""
}

// requestLogger emits one structured line per HTTP request. Websocket
// upgrades are logged when the connection ends.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Info("request")
	}
}
