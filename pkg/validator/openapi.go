package validator

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"portfolio-messageboard/backend/pkg/errors"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// OpenAPIValidator validates requests against an OpenAPI document
type OpenAPIValidator struct {
	swagger    *openapi3.T
	router     routers.Router
	schemaPath string
	mutex      sync.RWMutex
}

// NewOpenAPIValidator creates a new OpenAPI validator from a file
func NewOpenAPIValidator(schemaPath string) (*OpenAPIValidator, error) {
	swagger, router, err := loadOpenAPISchema(schemaPath)
	if err != nil {
		return nil, err
	}

	return &OpenAPIValidator{
		swagger:    swagger,
		router:     router,
		schemaPath: schemaPath,
	}, nil
}

// NewOpenAPIValidatorFromData creates a validator from an in-memory document
func NewOpenAPIValidatorFromData(data []byte) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI schema: %w", err)
	}
	router, err := buildRouter(loader.Context, swagger)
	if err != nil {
		return nil, err
	}
	return &OpenAPIValidator{swagger: swagger, router: router}, nil
}

func loadOpenAPISchema(path string) (*openapi3.T, routers.Router, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load OpenAPI schema from %s: %w", path, err)
	}
	router, err := buildRouter(loader.Context, swagger)
	if err != nil {
		return nil, nil, err
	}
	return swagger, router, nil
}

func buildRouter(ctx context.Context, swagger *openapi3.T) (routers.Router, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := swagger.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI schema: %w", err)
	}

	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("error creating OpenAPI router: %w", err)
	}
	return router, nil
}

// ReloadSchema reloads the OpenAPI schema from disk
func (v *OpenAPIValidator) ReloadSchema() error {
	if v.schemaPath == "" {
		return nil
	}
	swagger, router, err := loadOpenAPISchema(v.schemaPath)
	if err != nil {
		return err
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.swagger = swagger
	v.router = router
	return nil
}

// Middleware returns a Gin middleware that rejects requests not matching the
// document. Routes the document does not describe pass through untouched.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v.mutex.RLock()
		router := v.router
		v.mutex.RUnlock()

		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         false,
			},
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			c.Error(errors.NewError(http.StatusBadRequest, errors.CodeValidation, "request does not match the API schema").
				WithDetails(map[string]string{"request": err.Error()}).
				WithCause(err))
			c.Abort()
			return
		}

		c.Next()
	}
}
