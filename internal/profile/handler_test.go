package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coursemart/coursemart/internal/account"
	"github.com/coursemart/coursemart/internal/api"
	"github.com/coursemart/coursemart/internal/logging"
	"github.com/coursemart/coursemart/internal/middleware"
	"github.com/coursemart/coursemart/internal/token"
)

func setupApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	repo := account.NewMemoryRepository()
	accounts := account.NewService(repo, 4)
	acc, err := accounts.Create(context.Background(), account.CreateInput{
		Name: "Asha", Email: "asha@x.com", MobileNumber: "111", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tokens := token.NewIssuer("test-secret", time.Hour)
	bearer, err := tokens.Mint(acc.ID)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler(true, logging.Discard())})
	h := NewHandler(NewService(repo))
	group := app.Group("/api/user", middleware.JWTAuth(tokens, repo))
	group.Put("/profile", h.Update)
	group.Put("/bank-details", h.UpdateBankDetails)
	group.Get("/bank-details", h.GetBankDetails)

	return app, bearer
}

func request(t *testing.T, app *fiber.App, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return resp.StatusCode, decoded
}

func TestBankDetailsEndpoints(t *testing.T) {
	app, bearer := setupApp(t)

	status, body := request(t, app, fiber.MethodPut, "/api/user/bank-details", bearer, fiber.Map{
		"bankName":          "State Bank",
		"accountHolderName": "Asha K",
		"accountNumber":     "0011223344",
		"ifscCode":          "SBIN0000001",
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}

	status, body = request(t, app, fiber.MethodGet, "/api/user/bank-details", bearer, nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}
	data := body["data"].(map[string]any)
	if data["kycStatus"] != account.KYCPending {
		t.Fatalf("expected kycStatus pending, got %v", data["kycStatus"])
	}

	// Missing required field.
	status, _ = request(t, app, fiber.MethodPut, "/api/user/bank-details", bearer, fiber.Map{
		"bankName": "State Bank",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestProfileEndpointRequiresAuth(t *testing.T) {
	app, bearer := setupApp(t)

	status, _ := request(t, app, fiber.MethodPut, "/api/user/profile", "", fiber.Map{"name": "X"})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}

	status, body := request(t, app, fiber.MethodPut, "/api/user/profile", bearer, fiber.Map{
		"name": "Asha K", "whatsappNumber": "222",
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}
	user := body["data"].(map[string]any)["user"].(map[string]any)
	if user["name"] != "Asha K" {
		t.Fatalf("unexpected user %v", user)
	}
}
