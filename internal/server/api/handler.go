package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dkovalenko/contactbook/internal/common"
	"github.com/dkovalenko/contactbook/internal/server/models"
)

const (
	defaultListLimit = 10
	birthdayFormat   = "2006-01-02"
)

func (s *Server) registerRoutes(e *echo.Echo) {
	e.POST("/users/", s.register)
	e.POST("/token", s.login)
	e.POST("/token/refresh", s.refresh)

	g := e.Group("/contacts", s.bearerAuth)
	g.GET("/", s.listContacts)
	g.POST("/", s.createContact)
	g.GET("/search/", s.searchContacts)
	g.GET("/upcoming-birthdays/", s.upcomingBirthdays)
	g.GET("/:id", s.getContact)
	g.PUT("/:id", s.updateContact)
	g.DELETE("/:id", s.deleteContact)
	g.POST("/:id/avatar", s.avatarUploadURL)
	g.GET("/:id/avatar", s.avatarDownloadURL)
}

// --- DTOs ---

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type contactRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Birthday  *string `json:"birthday"`
	Notes     *string `json:"notes"`
}

type contactResponse struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Birthday  *string `json:"birthday"`
	Notes     *string `json:"notes"`
	HasAvatar bool    `json:"has_avatar"`
}

type avatarUploadResponse struct {
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

type avatarDownloadResponse struct {
	DownloadURL string `json:"download_url"`
}

func (r *contactRequest) toModel() (*models.Contact, error) {
	contact := &models.Contact{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Notes:     r.Notes,
	}
	if r.Birthday != nil {
		birthday, err := time.Parse(birthdayFormat, *r.Birthday)
		if err != nil {
			return nil, common.ErrorValidation
		}
		contact.Birthday = &birthday
	}
	return contact, nil
}

func toContactResponse(c *models.Contact) *contactResponse {
	resp := &contactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Notes:     c.Notes,
		HasAvatar: c.AvatarKey != nil,
	}
	if c.Birthday != nil {
		birthday := c.Birthday.Format(birthdayFormat)
		resp.Birthday = &birthday
	}
	return resp
}

func toContactResponses(contacts []*models.Contact) []*contactResponse {
	result := make([]*contactResponse, 0, len(contacts))
	for _, c := range contacts {
		result = append(result, toContactResponse(c))
	}
	return result
}

// --- auth handlers ---

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	user, err := s.users.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	s.logger.Info(c.Request().Context(), "Registered", "email", user.Email)
	return c.JSON(http.StatusCreated, &userResponse{ID: user.ID, Email: user.Email, IsActive: user.IsActive})
}

func (s *Server) login(c echo.Context) error {
	email := c.FormValue("username")
	password := c.FormValue("password")

	pair, err := s.users.Login(c.Request().Context(), email, password)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, &tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	pair, err := s.users.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, &tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

// --- contact handlers ---

func (s *Server) listContacts(c echo.Context) error {
	user := currentUser(c)

	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultListLimit
	}

	contacts, err := s.contacts.List(c.Request().Context(), user.ID, skip, limit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toContactResponses(contacts))
}

func (s *Server) createContact(c echo.Context) error {
	user := currentUser(c)

	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input")
	}
	contact, err := req.toModel()
	if err != nil {
		return toHTTPError(err)
	}

	created, err := s.contacts.Create(c.Request().Context(), user.ID, contact)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, toContactResponse(created))
}

func (s *Server) getContact(c echo.Context) error {
	user := currentUser(c)

	contact, err := s.contacts.Get(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toContactResponse(contact))
}

func (s *Server) updateContact(c echo.Context) error {
	user := currentUser(c)

	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input")
	}
	contact, err := req.toModel()
	if err != nil {
		return toHTTPError(err)
	}
	contact.ID = c.Param("id")

	updated, err := s.contacts.Update(c.Request().Context(), user.ID, contact)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toContactResponse(updated))
}

func (s *Server) deleteContact(c echo.Context) error {
	user := currentUser(c)

	if err := s.contacts.Delete(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) searchContacts(c echo.Context) error {
	user := currentUser(c)

	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	contacts, err := s.contacts.Search(c.Request().Context(), user.ID, query)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toContactResponses(contacts))
}

func (s *Server) upcomingBirthdays(c echo.Context) error {
	user := currentUser(c)

	contacts, err := s.contacts.UpcomingBirthdays(c.Request().Context(), user.ID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, toContactResponses(contacts))
}

func (s *Server) avatarUploadURL(c echo.Context) error {
	user := currentUser(c)

	key, url, err := s.contacts.AvatarUploadURL(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, &avatarUploadResponse{StorageKey: key, UploadURL: url})
}

func (s *Server) avatarDownloadURL(c echo.Context) error {
	user := currentUser(c)

	url, err := s.contacts.AvatarDownloadURL(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, &avatarDownloadResponse{DownloadURL: url})
}

// toHTTPError maps service sentinel errors to echo HTTP errors. Anything
// unrecognized becomes a 500 with a generic message.
func toHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorValidation):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	case errors.Is(err, common.ErrorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
