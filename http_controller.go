package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Middleware is the surface route registration needs from the authenticator.
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// RegisterAuthRoutes mounts the JSON auth endpoints on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Post(controller.Routes.VerifySecurity, controller.VerifySecurityPost).
		SetName("verify-security.post")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Post(fmt.Sprintf("%s/confirm", controller.Routes.PasswordReset), controller.PasswordResetExecute).
		SetName("pwd-reset-do.post")
}

type AuthControllerRoutes struct {
	Login          string
	VerifySecurity string
	PasswordReset  string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       *Auther
	Config       Config
	Notifier     Notifier
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:          "/login",
			VerifySecurity: "/login/verify-security",
			PasswordReset:  "/password-reset",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	OrganizationID *int64 `form:"organization_id" json:"organization_id"`
	Email          string `form:"email" json:"email"`
	Password       string `form:"password" json:"password"`
	SecurityAnswer string `form:"security_answer" json:"security_answer"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
	if err != nil {
		return ValidationFromOzzo(err)
	}
	return nil
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	result, err := a.Auther.Login(
		ctx.Context(),
		payload.OrganizationID,
		payload.Email,
		payload.Password,
		payload.SecurityAnswer,
	)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if result.Challenged() {
		return ctx.JSON(fiber.StatusOK, map[string]any{
			"challenge": result.Challenge,
		})
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"token": result.Token,
	})
}

// VerifySecurityRequest payload
type VerifySecurityRequest struct {
	Email          string `form:"email" json:"email"`
	SecurityAnswer string `form:"security_answer" json:"security_answer"`
}

// Validate will run validation rules
func (r VerifySecurityRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.SecurityAnswer, validation.Required),
	)
	if err != nil {
		return ValidationFromOzzo(err)
	}
	return nil
}

func (a *AuthController) VerifySecurityPost(ctx router.Context) error {
	payload := new(VerifySecurityRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Auther.VerifySecurity(ctx.Context(), payload.Email, payload.SecurityAnswer)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"token": result.Token,
	})
}

// PasswordResetRequestPayload holds values for a reset request
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
	if err != nil {
		return ValidationFromOzzo(err)
	}
	return nil
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo.Users(), a.Auther.TokenService(), a.Config).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(res))
	}

	// Always the same body whether or not the email exists.
	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

// PasswordResetVerifyPayload holds values for the reset confirmation
type PasswordResetVerifyPayload struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
	if err != nil {
		return ValidationFromOzzo(err)
	}
	return nil
}

func (a *AuthController) PasswordResetExecute(ctx router.Context) error {
	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	input := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo.Users(), a.Auther.TokenService(), a.Config).
		WithLogger(a.Logger)

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

func defaultErrHandler(c router.Context, err error) error {
	if IsValidationError(err) {
		return c.JSON(fiber.StatusBadRequest, map[string]any{
			"error":  "Validation failed",
			"fields": ValidationFields(err),
		})
	}
	if IsAuthenticationError(err) {
		return c.JSON(fiber.StatusUnauthorized, map[string]any{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.StatusInternalServerError, map[string]any{
		"error": "An unexpected server error occurred",
	})
}
