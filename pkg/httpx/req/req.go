package req

import (
	"fmt"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"dkp_bot/pkg/errcodes"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary         //nolint:gochecknoglobals // skip
	validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // skip
)

func Read(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return failure.NewInvalidArgumentError(
			fmt.Errorf("json.Decode: %w", err).Error(),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription("Invalid JSON"),
		)
	}

	if err := validate.StructCtx(r.Context(), dest); err != nil {
		return failure.NewInvalidArgumentError(
			"validation error",
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription(err.Error()),
		)
	}

	return nil
}

// QueryInt читает целый параметр строки запроса. Пустой параметр даёт def.
func QueryInt(r *http.Request, name string, def int, code failure.ErrorCode) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, failure.NewInvalidArgumentError(
			fmt.Sprintf("strconv.Atoi(%s): %v", name, err),
			failure.WithCode(code),
			failure.WithDescription(fmt.Sprintf("Parameter %q must be an integer", name)),
		)
	}

	return n, nil
}

// QueryBool читает логический параметр. Пустой параметр даёт nil.
func QueryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil //nolint:nilnil
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, failure.NewInvalidArgumentError(
			fmt.Sprintf("strconv.ParseBool(%s): %v", name, err),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription(fmt.Sprintf("Parameter %q must be a boolean", name)),
		)
	}

	return &b, nil
}
