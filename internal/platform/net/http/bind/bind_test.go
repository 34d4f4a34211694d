package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "scorekeeper/internal/platform/errors"
)

type actorBody struct {
	Login string `json:"login" validate:"required,login"`
	Days  int    `json:"days,omitempty" validate:"omitempty,min=1,max=90"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
}

func TestParseJSON_Login(t *testing.T) {
	cases := []struct {
		login string
		ok    bool
	}{
		{"octocat", true},
		{"a", true},
		{"dependabot-preview", true},
		{"a1-b2-c3", true},
		{strings.Repeat("a", 39), true},
		{strings.Repeat("a", 40), false},
		{"-lead", false},
		{"trail-", false},
		{"double--dash", false},
		{"has space", false},
		{"bot[bot]", false},
	}
	for _, tc := range cases {
		t.Run(tc.login, func(t *testing.T) {
			_, err := ParseJSON[actorBody](post(`{"login":"` + tc.login + `"}`))
			if tc.ok && err != nil {
				t.Fatalf("want ok got %v", err)
			}
			if !tc.ok {
				if !perr.IsCode(err, perr.ErrorCodeValidation) {
					t.Fatalf("want validation error got %v", err)
				}
				if e, ok := perr.As(err); !ok || e.Field() != "login" {
					t.Fatalf("want field login got %v", err)
				}
			}
		})
	}
}

func TestParseJSON_ShortRangeMessages(t *testing.T) {
	_, err := ParseJSON[actorBody](post(`{"login":"octocat","days":0}`))
	if err != nil {
		t.Fatalf("zero days is omitted: %v", err)
	}
	_, err = ParseJSON[actorBody](post(`{"login":"octocat","days":91}`))
	if err == nil || !strings.Contains(err.Error(), "days must be at most 90") {
		t.Fatalf("got %v", err)
	}
}

func TestParseJSON_BodyErrors(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"unknown":  `{"login":"octocat","extra":1}`,
		"trailing": `{"login":"octocat"} {}`,
		"broken":   `{"login":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON[actorBody](post(body))
			if !perr.IsCode(err, perr.ErrorCodeJSON) {
				t.Fatalf("want json error got %v", err)
			}
		})
	}
}

func TestParseJSON_EmptyBodyAllowed(t *testing.T) {
	type opt struct {
		Note string `json:"note"`
	}
	got, err := ParseJSON[opt](post(""), JSONOptions{AllowEmptyBody: true})
	if err != nil || got.Note != "" {
		t.Fatalf("got %+v %v", got, err)
	}

	r := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	if _, err := ParseJSON[actorBody](r); err != nil {
		t.Fatalf("GET with no body is tolerated: %v", err)
	}
}
