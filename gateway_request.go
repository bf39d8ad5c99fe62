package shutterdeck

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/shutterdeck/go-client-sdk/api"
)

var (
	jsonCheck = regexp.MustCompile("(?i:(?:application|text)/json)")
)

// Request is one logical call through the Gateway. A replay after a session
// refresh reuses the same Request, including its id.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	Header http.Header
	// Exempt marks endpoints that must never trigger session recovery.
	Exempt bool

	id      string
	retried bool
}

func NewRequest(method, path string, body interface{}) *Request {
	return &Request{Method: strings.ToUpper(method), Path: path, Body: body}
}

// Retried reports whether the request has already been through recovery.
func (r *Request) Retried() bool {
	return r.retried
}

func (r *Request) pathOnly() string {
	path, _, _ := strings.Cut(r.Path, "?")
	return path
}

// Response is a fully read HTTP response. The body is closed by the Gateway.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (r *Response) Decode(v interface{}) error {
	return decode(v, r.Body, r.Header.Get("Content-Type"))
}

func newResponse(r *http.Response) (*Response, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Header:     r.Header,
		Body:       body,
	}, nil
}

// GenericError Provides access to the body, error and model on returned errors.
type GenericError struct {
	StatusCode int
	body       []byte
	error      string
	model      api.ErrorResponse
}

func (e GenericError) Error() string {
	return e.error
}

func (e GenericError) Body() []byte {
	return e.body
}

func (e GenericError) Model() api.ErrorResponse {
	return e.model
}

// StatusCode extracts the HTTP status from an error returned by the Gateway,
// or 0 when the error did not come from an HTTP response.
func StatusCode(err error) int {
	var generic GenericError
	if errors.As(err, &generic) {
		return generic.StatusCode
	}
	return 0
}

func handleError(r *Response) error {
	newErr := GenericError{
		StatusCode: r.StatusCode,
		body:       r.Body,
		error:      r.Status,
	}
	if len(r.Body) > 0 {
		var v api.ErrorResponse
		if err := decode(&v, r.Body, r.Header.Get("Content-Type")); err == nil {
			newErr.model = v
			if v.Message != "" {
				newErr.error = fmt.Sprintf("%s: %s", r.Status, v.Message)
			}
		}
	}
	return newErr
}

func decode(v interface{}, b []byte, contentType string) (err error) {
	if v == nil || len(b) == 0 {
		return nil
	}
	if s, ok := v.(*string); ok {
		*s = string(b)
		return nil
	}
	// Servers that forget the header get their body sniffed as text/plain.
	if contentType == "" || jsonCheck.MatchString(contentType) || strings.HasPrefix(contentType, "text/plain") {
		return json.Unmarshal(b, v)
	}
	return errors.New("undefined response type " + contentType)
}

// prepareRequest build the request
func (g *Gateway) prepareRequest(req *Request) (localVarRequest *http.Request, err error) {
	headerParams := make(map[string]string)
	var body *bytes.Buffer

	// Detect postBody type and post.
	if req.Body != nil {
		contentType := req.Header.Get("Content-Type")
		if contentType == "" {
			contentType = detectContentType(req.Body)
			headerParams["Content-Type"] = contentType
		}

		body, err = setBody(req.Body, contentType)
		if err != nil {
			return nil, err
		}
	}
	headerParams["Accept"] = "application/json"

	builtURL, err := url.Parse(g.cfg.url(req.Path))
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		query := builtURL.Query()
		for k, v := range req.Query {
			for _, iv := range v {
				query.Add(k, iv)
			}
		}
		builtURL.RawQuery = query.Encode()
	}

	if body != nil {
		localVarRequest, err = http.NewRequest(req.Method, builtURL.String(), body)
	} else {
		localVarRequest, err = http.NewRequest(req.Method, builtURL.String(), nil)
	}
	if err != nil {
		return nil, err
	}

	for h, v := range headerParams {
		localVarRequest.Header.Set(h, v)
	}
	for h, values := range req.Header {
		for _, v := range values {
			localVarRequest.Header.Add(h, v)
		}
	}

	// Add the user agent to the request.
	localVarRequest.Header.Set("User-Agent", g.cfg.UserAgent)
	localVarRequest.Header.Set("X-Client-Id", g.clientID)
	localVarRequest.Header.Set("X-Request-Id", req.id)

	for header, value := range g.cfg.DefaultHeader {
		localVarRequest.Header.Add(header, value)
	}

	return localVarRequest, nil
}

func setBody(body interface{}, contentType string) (bodyBuf *bytes.Buffer, err error) {
	bodyBuf = &bytes.Buffer{}

	if b, ok := body.([]byte); ok {
		_, err = bodyBuf.Write(b)
	} else if s, ok := body.(string); ok {
		_, err = bodyBuf.WriteString(s)
	} else if s, ok := body.(*string); ok {
		_, err = bodyBuf.WriteString(*s)
	} else if jsonCheck.MatchString(contentType) {
		err = json.NewEncoder(bodyBuf).Encode(body)
	}

	if err != nil {
		return nil, err
	}

	if bodyBuf.Len() == 0 {
		err = fmt.Errorf("Invalid body type %s\n", contentType)
		return nil, err
	}
	return bodyBuf, nil
}

// detectContentType method is used to figure out `Request.Body` content type for request header
func detectContentType(body interface{}) string {
	contentType := "text/plain; charset=utf-8"
	kind := reflect.TypeOf(body).Kind()

	switch kind {
	case reflect.Struct, reflect.Map, reflect.Ptr:
		contentType = "application/json; charset=utf-8"
	case reflect.String:
		contentType = "text/plain; charset=utf-8"
	default:
		if b, ok := body.([]byte); ok {
			contentType = http.DetectContentType(b)
		} else if kind == reflect.Slice {
			contentType = "application/json; charset=utf-8"
		}
	}

	return contentType
}

// bufferBody drains reader bodies once so the request can be replayed.
func bufferBody(req *Request) error {
	reader, ok := req.Body.(io.Reader)
	if !ok {
		return nil
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if closer, ok := reader.(io.Closer); ok {
		_ = closer.Close()
	}
	req.Body = b
	return nil
}
