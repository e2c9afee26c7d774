package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jason-s-yu/showtime/engine"
	"github.com/jason-s-yu/showtime/internal/cache"
	"github.com/jason-s-yu/showtime/internal/game"
	"github.com/jason-s-yu/showtime/internal/models"
)

// Tables is the session manager surface the transport drives.
type Tables interface {
	Create(host models.Identity, settings engine.Settings) (engine.Summary, error)
	Lookup(code string) (string, error)
	Join(tableID string, who models.Identity) (engine.TableView, error)
	Leave(tableID, playerID string) error
	SetReady(tableID, playerID string, ready bool) error
	Start(tableID, callerID string) error
	Draw(tableID, playerID string, fromDiscard bool) (engine.Card, error)
	Resolve(tableID, playerID string, res engine.Resolution) error
	UsePower(tableID, playerID string, req engine.PowerRequest) (engine.PowerResult, error)
	EndTurn(tableID, playerID string) error
	Call(tableID, playerID string) (engine.CallResult, error)
	Delete(tableID string, caller models.Identity) error
	View(tableID, viewerID string) (engine.TableView, error)
	Sync(tableID, viewerID string) (game.Event, error)
	Summary(tableID string) (engine.Summary, error)
	List() []engine.Summary
}

// ProfileLookup resolves the display name shown at a seat.
type ProfileLookup interface {
	Lookup(ctx context.Context, playerID, fallback string) cache.Profile
}

type TableHandler struct {
	tables   Tables
	profiles ProfileLookup
	defaults engine.Settings
}

func NewTableHandler(tables Tables, profiles ProfileLookup, defaults engine.Settings) *TableHandler {
	return &TableHandler{tables: tables, profiles: profiles, defaults: defaults}
}

// Create opens a table. Settings omitted from the body keep the server
// defaults.
func (h *TableHandler) Create(c *gin.Context) {
	settings := h.defaults
	if err := bindOptionalJSON(c, &settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings: " + err.Error()})
		return
	}
	sum, err := h.tables.Create(identity(c), settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sum)
}

func (h *TableHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": h.tables.List()})
}

// Get returns the caller's projection of a table.
func (h *TableHandler) Get(c *gin.Context) {
	view, err := h.tables.View(c.Param("id"), identity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TableHandler) Join(c *gin.Context) {
	h.join(c, c.Param("id"))
}

// JoinByCode seats the caller at the table behind a join code.
func (h *TableHandler) JoinByCode(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.tables.Lookup(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	h.join(c, id)
}

func (h *TableHandler) join(c *gin.Context, tableID string) {
	who := identity(c)
	if h.profiles != nil {
		who.DisplayName = h.profiles.Lookup(c.Request.Context(), who.ID, who.DisplayName).DisplayName
	}
	view, err := h.tables.Join(tableID, who)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TableHandler) Leave(c *gin.Context) {
	if err := h.tables.Leave(c.Param("id"), identity(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TableHandler) Ready(c *gin.Context) {
	req := struct {
		Ready *bool `json:"ready"`
	}{}
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ready := req.Ready == nil || *req.Ready
	h.command(c, func(tableID, playerID string) error {
		return h.tables.SetReady(tableID, playerID, ready)
	})
}

func (h *TableHandler) Start(c *gin.Context) {
	h.command(c, h.tables.Start)
}

func (h *TableHandler) Delete(c *gin.Context) {
	if err := h.tables.Delete(c.Param("id"), identity(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// command runs a lobby command and answers with the caller's fresh view.
func (h *TableHandler) command(c *gin.Context, run func(tableID, playerID string) error) {
	tableID, who := c.Param("id"), identity(c)
	if err := run(tableID, who.ID); err != nil {
		respondError(c, err)
		return
	}
	view, err := h.tables.View(tableID, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// bindOptionalJSON decodes the request body into v. A missing or empty body
// leaves v as it was; chunked bodies have no length up front.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
