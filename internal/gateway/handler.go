package gateway

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/userplane/internal/middleware"
	"github.com/hitoshi/userplane/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// sessionCookieName はブラウザセッションのCookie名。
const sessionCookieName = "session_token"

// Config はゲートウェイハンドラーの表示・Cookie設定。
type Config struct {
	AppName        string
	WelcomeMessage string
	CookieSecure   bool
	CookieDomain   string
}

// Handler はブラウザ向けのゲートウェイハンドラー。
// 認証サービスと業務サービスへのリクエストを仲介する。
type Handler struct {
	auth     *AuthClient
	platform *PlatformClient
	config   Config
	pages    map[string]*template.Template
}

// NewHandler はHandlerを生成する。テンプレートのパースに失敗した場合panicする。
func NewHandler(auth *AuthClient, platform *PlatformClient, config Config) *Handler {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "login", "register", "me"} {
		pages[name] = template.Must(template.ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}

	return &Handler{
		auth:     auth,
		platform: platform,
		config:   config,
		pages:    pages,
	}
}

// NewRouter はゲートウェイの全ルーティングを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CSRF
//
// セッションCookieによる暗黙の認証を持つフォームPOSTはCSRFトークンを必須とする。
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCSRFMiddleware(middleware.CSRFConfig{
		CookieSecure: h.config.CookieSecure,
		CookieDomain: h.config.CookieDomain,
	}))

	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)

	r.Get("/", h.Home)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/logout", h.Logout)

	r.Get("/me", h.Me)
	r.Post("/me/profile", h.SaveProfile)

	r.Get("/api/report/{id}", h.Report)
	r.Post("/api/notify", h.Notify)

	return r
}

// viewData はテンプレートへ渡す表示データ。
type viewData struct {
	AppName        string
	WelcomeMessage string
	LoggedIn       bool
	Identity       *model.Identity
	Profile        *ProfileResponse
	Error          string
	Notice         string
	Login          string
	CSRFToken      string
}

// newViewData は共通フィールドを埋めたviewDataを生成する。
// フォームのhiddenフィールド用にCSRFトークンを含める。
func (h *Handler) newViewData(r *http.Request) viewData {
	return viewData{
		AppName:        h.config.AppName,
		WelcomeMessage: h.config.WelcomeMessage,
		CSRFToken:      middleware.CSRFTokenFromRequest(r),
	}
}

// render は指定ページのテンプレートを描画する。
func (h *Handler) render(w http.ResponseWriter, statusCode int, page string, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := h.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// sessionToken はリクエストからセッションCookieのトークンを取り出す。
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie はセッションCookieを設定する。
// 有効期限は認証サービスが返したexpires_atに合わせる。
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// identify はセッションCookieを検証してアイデンティティを返す。
// トークンが無い、または無効な場合はnilを返す。
// 検証サービスに到達できない場合はDOWNSTREAM_UNAVAILABLEを返す（フェイルクローズ）。
func (h *Handler) identify(ctx context.Context, r *http.Request) (*model.Identity, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, nil
	}

	identity, err := h.auth.Validate(ctx, token)
	if err != nil {
		if apiErr := asAPIError(err); apiErr != nil && apiErr.Code != model.ErrCodeDownstreamUnavailable {
			// 期限切れ・無効トークンはログアウト状態として扱う
			return nil, nil
		}
		return nil, err
	}

	return identity, nil
}

// Home はトップページを表示する。
// GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := h.newViewData(r)

	identity, err := h.identify(r.Context(), r)
	if err != nil {
		h.render(w, http.StatusServiceUnavailable, "home", h.unavailableView(r))
		return
	}
	if identity != nil {
		data.LoggedIn = true
		data.Identity = identity
	}

	h.render(w, http.StatusOK, "home", data)
}

// LoginForm はログインフォームを表示する。ログイン済みなら/meへリダイレクトする。
// GET /login
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if identity, err := h.identify(r.Context(), r); err == nil && identity != nil {
		http.Redirect(w, r, "/me", http.StatusSeeOther)
		return
	}

	data := h.newViewData(r)
	if r.URL.Query().Get("registered") == "1" {
		data.Notice = "Account created. Please log in."
	}
	h.render(w, http.StatusOK, "login", data)
}

// Login はログインフォームの送信を処理する。
// 成功時はセッションCookieを設定して/meへリダイレクトする。
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := h.newViewData(r)
		data.Error = "Invalid form submission."
		h.render(w, http.StatusBadRequest, "login", data)
		return
	}

	login := r.PostFormValue("login")
	password := r.PostFormValue("password")

	result, err := h.auth.Login(r.Context(), login, password)
	if err != nil {
		data := h.newViewData(r)
		data.Login = login
		data.Error = loginErrorMessage(err)
		h.render(w, statusForPageError(err), "login", data)
		return
	}

	expiresAt, parseErr := time.Parse(time.RFC3339, result.ExpiresAt)
	if parseErr != nil {
		// 期限が読めない場合はブラウザセッション限りのCookieにする
		expiresAt = time.Time{}
	}
	h.setSessionCookie(w, result.Token, expiresAt)

	slog.Info("user logged in", slog.String("account_id", result.AccountID))
	http.Redirect(w, r, "/me", http.StatusSeeOther)
}

// RegisterForm は登録フォームを表示する。
// GET /register
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register", h.newViewData(r))
}

// Register は登録フォームの送信を処理する。
// 成功時はログインフォームへリダイレクトする。
// POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := h.newViewData(r)
		data.Error = "Invalid form submission."
		h.render(w, http.StatusBadRequest, "register", data)
		return
	}

	login := r.PostFormValue("login")
	password := r.PostFormValue("password")

	if err := h.auth.Register(r.Context(), login, password); err != nil {
		data := h.newViewData(r)
		data.Login = login
		data.Error = registerErrorMessage(err)
		h.render(w, statusForPageError(err), "register", data)
		return
	}

	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// Logout はセッションを終了する。
// 下流への失効依頼はベストエフォートで、失敗してもCookieは必ず削除する。
// GET /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			slog.Warn("failed to revoke token on logout", slog.String("error", err.Error()))
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Me はマイページを表示する。
// 未ログインならログインフォームへリダイレクトし、無効なCookieは削除する。
// GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	identity, err := h.auth.Validate(r.Context(), token)
	if err != nil {
		if apiErr := asAPIError(err); apiErr != nil && apiErr.Code == model.ErrCodeDownstreamUnavailable {
			h.render(w, http.StatusServiceUnavailable, "home", h.unavailableView(r))
			return
		}
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := h.newViewData(r)
	data.LoggedIn = true
	data.Identity = identity

	profile, err := h.platform.GetProfile(r.Context(), identity.AccountID)
	if err != nil {
		if apiErr := asAPIError(err); apiErr == nil || apiErr.Code != model.ErrCodeProfileNotFound {
			data.Error = "Profile is temporarily unavailable."
		}
	} else {
		data.Profile = profile
	}

	h.render(w, http.StatusOK, "me", data)
}

// SaveProfile はマイページのプロフィールフォーム送信を処理する。
// POST /me/profile
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	identity, err := h.auth.Validate(r.Context(), token)
	if err != nil {
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/me", http.StatusSeeOther)
		return
	}

	fullName := r.PostFormValue("full_name")
	bio := r.PostFormValue("bio")

	if _, err := h.platform.SaveProfile(r.Context(), identity.AccountID, fullName, bio); err != nil {
		data := h.newViewData(r)
		data.LoggedIn = true
		data.Identity = identity
		data.Error = pageErrorMessage(err, "Failed to save profile.")
		h.render(w, statusForPageError(err), "me", data)
		return
	}

	http.Redirect(w, r, "/me", http.StatusSeeOther)
}

// Report は集計レポートをJSONで中継するAPIエンドポイント。
// セッションCookieまたはAuthorizationヘッダーで認証する。
// GET /api/report/{id}
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	token := bearerOrCookieToken(r)
	if token == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	identity, err := h.auth.Validate(r.Context(), token)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	targetID := chi.URLParam(r, "id")
	report, err := h.platform.Report(r.Context(), identity.AccountID, targetID)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Notify は通知依頼をJSONのまま業務サービスへ中継するAPIエンドポイント。
// セッションCookieまたはAuthorizationヘッダーで認証する。
// POST /api/notify
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	token := bearerOrCookieToken(r)
	if token == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewMissingTokenError())
		return
	}

	identity, err := h.auth.Validate(r.Context(), token)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	result, err := h.platform.Notify(r.Context(), identity.AccountID, payload)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// HealthLive はゲートウェイプロセスの生存を返す。
// GET /health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady はゲートウェイのreadinessを返す。
// 自身は状態を持たないため、認証サービスへの到達性に委譲する。
// GET /health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "auth service unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// unavailableView は下流到達不能時の表示データを生成する。
func (h *Handler) unavailableView(r *http.Request) viewData {
	data := h.newViewData(r)
	data.Error = "Service is temporarily unavailable. Please try again later."
	return data
}
