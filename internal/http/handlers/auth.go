package handlers

import (
	"net/http"

	"github.com/pribylovaa/accounts-service/internal/http/httperr"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// RegisterUser — POST /users/register (multipart/form-data).
// Поля: username, email, full_name, password; файлы: avatar (обязателен),
// coverImage (опционален). Ответ 201 — созданный пользователь без
// чувствительных полей, без токенов и cookie.
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.Cfg.Images.MaxSizeBytes * 2); err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	input := service.RegisterInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		FullName: r.FormValue("full_name"),
		Password: r.FormValue("password"),
	}

	avatar, avatarClose, err := fileUpload(r, "avatar")
	if err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument)
		return
	}
	if avatarClose != nil {
		defer avatarClose()
	}
	input.Avatar = avatar

	// Обложка опциональна: отсутствие файла не является ошибкой.
	cover, coverClose, err := fileUpload(r, "coverImage")
	if err == nil && cover != nil {
		defer coverClose()
		input.CoverImage = cover
	}

	user, err := h.Service.Register(r.Context(), input)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// LoginUser — POST /users/login.
// Успех: 200, пара токенов в теле и обе cookie.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	pair, user, err := h.Service.Login(r.Context(), service.LoginInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, loginResponse{
		User:         *user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// LogoutUser — POST /users/logout (auth).
// Идемпотентно снимает сессию и сбрасывает cookie.
func (h *Handlers) LogoutUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	if err := h.Service.Logout(r.Context(), userID); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

// RefreshToken — POST /users/refresh-token.
// Токен берётся из cookie либо из тела; успех — новая пара в теле и cookie,
// старый refresh-токен с этого момента недействителен.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	presented := refreshTokenFromRequest(r)

	pair, err := h.Service.Refresh(r.Context(), presented)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// ChangePassword — POST /users/change-password (auth).
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), userID, in.OldPassword, in.NewPassword); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// CurrentUser — GET /users/current-user (auth).
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	user, err := h.Service.UserByID(r.Context(), userID)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// fileUpload достаёт файл из multipart-формы.
// Возвращает (nil, nil, err) если файла нет; закрытие — на вызывающем.
func fileUpload(r *http.Request, field string) (*storage.ImageUpload, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, err
	}

	upload := &storage.ImageUpload{
		Body:        file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}

	closeFn := func() { _ = file.Close() }
	return upload, closeFn, nil
}
