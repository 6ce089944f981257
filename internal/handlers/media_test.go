package handlers

import (
	"context"
	"net/http"
	"strings"
)

func (s *HandlersSuite) uploadMedia(token string) map[string]any {
	w := s.upload("/api/v1/media/upload", token, "sunset.png", []byte("fake png"), map[string]string{
		"description": " evening ",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var row map[string]any
	s.decode(w, &row)
	return row
}

func (s *HandlersSuite) TestUploadMedia() {
	row := s.uploadMedia(s.alice.Token)

	s.Equal(s.alice.ID, row["user_id"])
	s.Equal("sunset.png", row["file_name"])
	s.Equal("evening", row["description"])
	s.Equal("image/png", row["file_type"])
	s.EqualValues(len("fake png"), row["file_size"])

	key := row["file_path"].(string)
	s.True(strings.HasPrefix(key, "media/"+s.alice.ID+"/"))
	s.Equal("https://cdn.test/"+key, row["public_url"])
	body, ok := s.store.Object(key)
	s.Require().True(ok)
	s.Equal("fake png", string(body))
}

func (s *HandlersSuite) TestUploadRequiresFile() {
	w := s.upload("/api/v1/media/upload", s.alice.Token, "", nil, map[string]string{"description": "x"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("file", s.errorOf(w).Field)
}

func (s *HandlersSuite) TestMediaListDefaultsToCaller() {
	s.uploadMedia(s.alice.Token)

	var resp struct {
		Items []map[string]any `json:"items"`
		Count int              `json:"count"`
	}
	w := s.do(http.MethodGet, "/api/v1/media", s.alice.Token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &resp)
	s.Equal(1, resp.Count)

	w = s.do(http.MethodGet, "/api/v1/media", s.bob.Token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &resp)
	s.Equal(0, resp.Count)

	w = s.do(http.MethodGet, "/api/v1/media?user_id="+s.alice.ID, s.bob.Token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &resp)
	s.Equal(1, resp.Count)
}

func (s *HandlersSuite) TestDownloadMedia() {
	row := s.uploadMedia(s.alice.Token)
	path := "/api/v1/media/" + row["id"].(string) + "/download"

	w := s.doWith(http.MethodGet, path, s.bob.Token, nil, map[string]string{"Accept": "application/json"})
	s.Require().Equal(http.StatusOK, w.Code)
	var resp map[string]string
	s.decode(w, &resp)
	s.Equal(row["public_url"], resp["url"])

	w = s.doWith(http.MethodGet, path, s.bob.Token, nil, map[string]string{"Accept": "*/*"})
	s.Equal(http.StatusFound, w.Code)
	s.Equal(row["public_url"], w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/api/v1/media/missing/download", s.bob.Token, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersSuite) TestDescribeAndDeleteMedia() {
	row := s.uploadMedia(s.alice.Token)
	id := row["id"].(string)
	key := row["file_path"].(string)

	w := s.do(http.MethodPatch, "/api/v1/media/"+id, s.bob.Token, map[string]any{"description": "mine now"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/media/"+id, s.alice.Token, map[string]any{"description": "sunset"})
	s.Require().Equal(http.StatusOK, w.Code)
	var updated map[string]any
	s.decode(w, &updated)
	s.Equal("sunset", updated["description"])

	w = s.do(http.MethodPatch, "/api/v1/media/"+id, s.alice.Token, map[string]any{"file_path": "other"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/media/"+id, s.alice.Token, nil)
	s.Equal(http.StatusNoContent, w.Code)
	_, ok := s.store.Object(key)
	s.False(ok)
}

func (s *HandlersSuite) TestUploadObject() {
	w := s.upload("/api/v1/storage/upload", s.bob.Token, "notes.txt", []byte("hello"), nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var obj map[string]any
	s.decode(w, &obj)
	key := obj["key"].(string)
	s.Equal("https://cdn.test/"+key, obj["url"])
	s.EqualValues(5, obj["size"])
	_, ok := s.store.Object(key)
	s.True(ok)

	// No media row is recorded
	rows, err := s.repos.Media.List(context.Background(), nil, true, 10)
	s.Require().NoError(err)
	s.Empty(rows)
}
