package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cenkalti/backoff/v4"

	"cosmicds/internal/identity"
	"cosmicds/internal/state"
)

type studentRecord struct {
	ID int `json:"id"`
}

type studentResponse struct {
	Student *studentRecord `json:"student"`
}

type classResponse struct {
	Class map[string]any `json:"class"`
	Size  *int           `json:"size"`
}

type signUpRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Institution   string `json:"institution"`
	Email         string `json:"email"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	ClassroomCode string `json:"classroomCode"`
}

var errStudentNotVisible = errors.New("student not visible yet")

func (c *Client) fetchStudent(ctx context.Context, hash string) (*studentRecord, error) {
	var resp studentResponse
	if _, err := c.do(ctx, http.MethodGet, endpoint("student", hash), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Student, nil
}

// UserExists reports whether the backend has a student for user. An
// unresolvable identity is logged and reported as false.
func (c *Client) UserExists(ctx context.Context, user *identity.UserInfo) (bool, error) {
	hash, ok := c.HashedUser(user)
	if !ok {
		return false, nil
	}
	student, err := c.fetchStudent(ctx, hash)
	if err != nil {
		return false, err
	}
	return student != nil, nil
}

// LoadUserInfo fetches the student and its classroom for storyName and writes
// Student.ID, Classroom.ClassInfo and Classroom.Size into global. Nothing is
// written unless both reads succeed.
func (c *Client) LoadUserInfo(ctx context.Context, user *identity.UserInfo, storyName string, global *state.GlobalState) error {
	hash, ok := c.HashedUser(user)
	if !ok {
		return nil
	}

	student, err := c.fetchStudent(ctx, hash)
	if err != nil {
		if isDecodeError(err) {
			c.log.Error().Err(err).Msg("failed to load student record")
			return nil
		}
		return err
	}
	if student == nil {
		c.log.Error().Str("story_id", storyName).Msg("failed to load user info: student record not found")
		return nil
	}

	var class classResponse
	path := endpoint("class-for-student-story", strconv.Itoa(student.ID), storyName)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &class); err != nil {
		if isDecodeError(err) {
			c.log.Error().Err(err).Int("student_id", student.ID).Msg("failed to load classroom")
			return nil
		}
		return err
	}
	if class.Size == nil {
		c.log.Error().
			Int("student_id", student.ID).
			Str("story_id", storyName).
			Msg("failed to load user info: malformed classroom response")
		return nil
	}

	info := class.Class
	if info == nil {
		info = map[string]any{}
	}
	global.Student.ID = student.ID
	global.Classroom.ClassInfo = info
	global.Classroom.Size = *class.Size

	c.log.Info().Int("student_id", student.ID).Msg("loaded user info")
	return nil
}

// CreateNewUser signs user up with classCode unless a student already exists
// for the same hash, then loads the new record into global.
func (c *Client) CreateNewUser(ctx context.Context, user *identity.UserInfo, storyName, classCode string, global *state.GlobalState) error {
	hash, ok := c.HashedUser(user)
	if !ok {
		return nil
	}

	existing, err := c.fetchStudent(ctx, hash)
	if err != nil {
		return err
	}
	if existing != nil {
		c.log.Error().Str("hashed_user", hash).Msg("failed to create user: user already exists")
		return nil
	}

	req := signUpRequest{
		Username:      hash,
		Password:      "",
		Institution:   "",
		Email:         identity.SignUpEmail(hash),
		Age:           0,
		Gender:        "undefined",
		ClassroomCode: classCode,
	}
	status, err := c.do(ctx, http.MethodPost, "/student-sign-up", req, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		c.log.Error().Int("status", status).Msg("failed to create new user")
		return nil
	}

	c.log.Info().
		Str("hashed_user", hash).
		Str("class_code", classCode).
		Msg("created new user")

	if err := c.confirmStudent(ctx, hash); err != nil {
		if errors.Is(err, errStudentNotVisible) {
			c.log.Error().Str("hashed_user", hash).Msg("new user not visible after sign-up")
			return nil
		}
		return err
	}

	return c.LoadUserInfo(ctx, user, storyName, global)
}

func (c *Client) confirmStudent(ctx context.Context, hash string) error {
	if c.confirm.Attempts == 0 {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if c.confirm.InitialInterval > 0 {
		b.InitialInterval = c.confirm.InitialInterval
	}
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.confirm.Attempts-1)), ctx)

	err := backoff.Retry(func() error {
		student, err := c.fetchStudent(ctx, hash)
		if err != nil {
			return backoff.Permanent(err)
		}
		if student == nil {
			return errStudentNotVisible
		}
		return nil
	}, policy)
	if err != nil && !errors.Is(err, errStudentNotVisible) && ctx.Err() == nil {
		return fmt.Errorf("confirming sign-up: %w", err)
	}
	return err
}

// ClearUser forgets the student and classroom held in global. No request is
// made; the backend record is kept.
func ClearUser(global *state.GlobalState) {
	global.ClearUser()
}
