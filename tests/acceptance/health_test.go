package acceptance

import (
	"net/http"
)

func (s *Suite) TestHealthEndpoint() {
	resp := s.get("/health", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestMetricsEndpoint() {
	resp := s.get("/metrics", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}
