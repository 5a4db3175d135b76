package deskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/studentdesk/frontdesk/models"
)

const (
	loginPath      = "/api/user/login"
	signupPath     = "/api/user/signup"
	fetchPath      = "/api/student/fetchAllStudents"
	addPath        = "/api/student/addStudent"
	allocationPath = "/api/student/editAllocatedMan/"
)

// Client is a client for the student management REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new instance of Client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a token and user profile.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	body := models.LoginRequest{Email: email, Password: password}

	respBody, err := c.makeRequest(ctx, http.MethodPost, loginPath, "", body, "Login failed")
	if err != nil {
		return nil, err
	}

	var resp models.AuthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &resp, nil
}

// Signup registers a new user. The token in the response may be empty.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	respBody, err := c.makeRequest(ctx, http.MethodPost, signupPath, "", req, "Signup failed")
	if err != nil {
		return nil, err
	}

	var resp models.AuthResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode signup response: %w", err)
		}
	}
	return &resp, nil
}

// FetchAllStudents retrieves the full student collection.
func (c *Client) FetchAllStudents(ctx context.Context, token string) ([]models.Student, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	respBody, err := c.makeRequest(ctx, http.MethodGet, fetchPath, token, nil, "Failed to fetch students")
	if err != nil {
		return nil, err
	}

	var resp models.StudentsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode students response: %w", err)
	}
	if resp.Students == nil {
		resp.Students = []models.Student{}
	}
	return resp.Students, nil
}

// AddStudent registers a student and returns the canonical record.
func (c *Client) AddStudent(ctx context.Context, token string, ns models.NewStudent) (*models.Student, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	respBody, err := c.makeRequest(ctx, http.MethodPost, addPath, token, ns, "Failed to add student")
	if err != nil {
		return nil, err
	}

	var resp models.StudentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode student response: %w", err)
	}
	return &resp.Student, nil
}

// EditAllocatedMan sets the staff member allocated to a student.
func (c *Client) EditAllocatedMan(ctx context.Context, token, studentID, staffName string) error {
	if token == "" {
		return ErrMissingToken
	}

	path := allocationPath + url.PathEscape(studentID)
	body := models.AllocationRequest{AllocatedMan: staffName}

	_, err := c.makeRequest(ctx, http.MethodPatch, path, token, body, "Failed to allocate man")
	return err
}

// Helper function for making HTTP requests to the student API.
func (c *Client) makeRequest(ctx context.Context, method, path, token string, body interface{}, failMsg string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode >= 400 {
		var errBody models.ErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err != nil || errBody.Message == "" {
			errBody.Message = failMsg
		}
		return nil, &HTTPError{Message: errBody.Message, Status: resp.StatusCode}
	}

	return respBody, nil
}
