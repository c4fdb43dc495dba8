package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/autotrans"
	"github.com/labstack/echo/v4"
)

type handlers struct {
	svc *Service
}

type (
	textRequest struct {
		Text       *string `json:"text"`
		TargetLang string  `json:"target_language"`
		SourceLang string  `json:"source_language"`
	}

	batchRequest struct {
		Texts      []string `json:"texts"`
		TargetLang string   `json:"target_language"`
		SourceLang string   `json:"source_language"`
	}

	detectRequest struct {
		Text string `json:"text"`
	}

	detectResponse struct {
		Language  string `json:"language"`
		Name      string `json:"name"`
		Direction string `json:"direction"`
	}
)

// bind decodes a JSON body whatever the Content-Type header says.
func bind(ctx echo.Context, v any) error {
	dec := json.NewDecoder(ctx.Request().Body)
	if err := dec.Decode(v); err != nil {
		return errMalformedBody.WithInternal(err)
	}
	return nil
}

func (h *handlers) translateText(ctx echo.Context) error {
	var req textRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	if req.Text == nil {
		return errMissingText
	}
	if strings.TrimSpace(req.TargetLang) == "" {
		return errMissingTarget
	}

	translated, err := h.svc.TranslateText(ctx.Request().Context(), autotrans.TextRequest{
		Text:       *req.Text,
		TargetLang: req.TargetLang,
		SourceLang: req.SourceLang,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, autotrans.TextResponse{TranslatedText: &translated})
}

func (h *handlers) translateBatch(ctx echo.Context) error {
	var req batchRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	if req.Texts == nil {
		return errMissingTexts
	}
	if strings.TrimSpace(req.TargetLang) == "" {
		return errMissingTarget
	}

	translated, err := h.svc.TranslateBatch(ctx.Request().Context(), autotrans.BatchRequest{
		Texts:      req.Texts,
		TargetLang: req.TargetLang,
		SourceLang: req.SourceLang,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, autotrans.BatchResponse{TranslatedTexts: translated})
}

func (h *handlers) languages(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"languages": autotrans.Languages(),
		"default":   autotrans.DefaultSourceLang,
	})
}

func (h *handlers) detectLanguage(ctx echo.Context) error {
	var req detectRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}

	code := autotrans.DetectLanguage(req.Text)
	return ctx.JSON(http.StatusOK, detectResponse{
		Language:  code,
		Name:      autotrans.GetLanguageName(code),
		Direction: autotrans.GetDirection(code),
	})
}

func (h *handlers) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"version": autotrans.FullVersion(),
	})
}
