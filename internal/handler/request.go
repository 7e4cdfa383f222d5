package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/auth"
	"github.com/sakif/problem-hub/internal/model"
)

const (
	// MaxImageBytes bounds the "image" part of a problem upload.
	MaxImageBytes = 10 << 20
	// maxBodyBytes leaves room for the text fields and multipart framing.
	maxBodyBytes = MaxImageBytes + 1<<20
)

// caller returns the identity RequireAuth stored in the context.
func caller(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, apperror.Unauthenticated("access token required")
	}
	return id, nil
}

// readProblemRequest accepts the problem fields either as a JSON object or
// as multipart/form-data with an optional "image" file part. Fields missing
// from the request stay nil in the patch.
func readProblemRequest(w http.ResponseWriter, r *http.Request) (model.ProblemPatch, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var patch model.ProblemPatch
		if err := decodeJSON(r, &patch); err != nil {
			return model.ProblemPatch{}, nil, err
		}
		return patch, nil, nil
	}

	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.ProblemPatch{}, nil, apperror.ValidationFailed("image",
				fmt.Sprintf("request body must be %d bytes or less", maxBodyBytes))
		}
		return model.ProblemPatch{}, nil, apperror.ValidationFailed("body", "invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	form := r.MultipartForm
	patch := model.ProblemPatch{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Location:    formValue(form, "location"),
		Status:      formValue(form, "status"),
	}

	image, err := readImage(form)
	if err != nil {
		return model.ProblemPatch{}, nil, err
	}
	return patch, image, nil
}

// formValue distinguishes an absent field (nil) from an empty one.
func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func readImage(form *multipart.Form) ([]byte, error) {
	files := form.File["image"]
	if len(files) == 0 {
		return nil, nil
	}

	header := files[0]
	if header.Size > MaxImageBytes {
		return nil, apperror.ValidationFailed("image",
			fmt.Sprintf("image must be %d bytes or less", MaxImageBytes))
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening uploaded image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading uploaded image: %w", err)
	}
	return data, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
