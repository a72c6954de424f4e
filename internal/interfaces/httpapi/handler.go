package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"github.com/riskibarqy/perf-import/internal/usecase"
)

type Handler struct {
	mappingService  *usecase.MappingService
	importService   *usecase.ImportService
	playerResolver  *usecase.PlayerResolver
	templateService *usecase.TemplateService
	store           kv.Store
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(
	mappingService *usecase.MappingService,
	importService *usecase.ImportService,
	playerResolver *usecase.PlayerResolver,
	templateService *usecase.TemplateService,
	store kv.Store,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		mappingService:  mappingService,
		importService:   importService,
		playerResolver:  playerResolver,
		templateService: templateService,
		store:           store,
		logger:          logger,
		validator:       validator.New(),
	}
}

// decodeRequest reads a strict JSON body into payload and validates it.
func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, payload any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrInvalidInput, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, payload)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
