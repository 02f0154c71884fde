// Package jenkinstest provides a scripted fake Jenkins server for tests.
package jenkinstest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// BaseURLPlaceholder is replaced by the server URL in scripted bodies
const BaseURLPlaceholder = "{{base}}"

// Job scripts how the server answers for one job. Queue and build bodies are
// served in order; the last one repeats once the script is exhausted.
type Job struct {
	Parameterized bool
	SubmitStatus  int  // default 201
	OmitLocation  bool // answer the submission without a Location header
	QueueBodies   []string
	BuildBodies   []string
}

// Request is a request the server received
type Request struct {
	Method string
	Path   string
	Header http.Header
	Form   url.Values
	Body   string
}

// Server is a fake Jenkins instance
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	crumbValue  string
	jobs        map[string]*Job
	queuePolls  map[string]int
	buildPolls  map[string]int
	requests    []Request
	queueJobs   map[string]string
	nextQueueID int
}

// NewServer starts a fake Jenkins serving the given jobs
func NewServer(jobs map[string]*Job) *Server {
	s := &Server{
		jobs:        jobs,
		queuePolls:  map[string]int{},
		buildPolls:  map[string]int{},
		queueJobs:   map[string]string{},
		nextQueueID: 1,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/crumbIssuer/api/json", s.crumb)
	r.Get("/job/{name}/api/json", s.jobInfo)
	r.Post("/job/{name}/build", s.submit(false))
	r.Post("/job/{name}/buildWithParameters", s.submit(true))
	r.Get("/queue/item/{id}/api/json", s.queueItem)
	r.Get("/job/{name}/{number}/api/json", s.build)

	s.Server = httptest.NewUnstartedServer(r)
	s.Server.Start()
	return s
}

// Requests returns a copy of every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the received requests whose path has the given suffix
func (s *Server) RequestsTo(method, pathSuffix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasSuffix(r.Path, pathSuffix) {
			out = append(out, r)
		}
	}
	return out
}

// BuildURL returns the URL the fake uses for build number n of job
func (s *Server) BuildURL(job string, n int) string {
	return fmt.Sprintf("%s/job/%s/%d/", s.URL, job, n)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Form:   form,
			Body:   string(body),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// SetCrumb makes /crumbIssuer/api/json serve value; empty answers 404
func (s *Server) SetCrumb(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crumbValue = value
}

func (s *Server) crumb(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	value := s.crumbValue
	s.mu.Unlock()

	if value == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"crumb":%q,"crumbRequestField":"Jenkins-Crumb"}`, value)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Job, string, bool) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
	}
	return job, name, ok
}

func (s *Server) jobInfo(w http.ResponseWriter, r *http.Request) {
	job, name, ok := s.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if job.Parameterized {
		fmt.Fprintf(w, `{"name":%q,"property":[{"_class":"hudson.model.ParametersDefinitionProperty","parameterDefinitions":[]}]}`, name)
		return
	}
	fmt.Fprintf(w, `{"name":%q,"property":[]}`, name)
}

func (s *Server) submit(withParameters bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, name, ok := s.lookup(w, r)
		if !ok {
			return
		}
		if withParameters != job.Parameterized {
			http.Error(w, "wrong submission endpoint", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		id := fmt.Sprint(s.nextQueueID)
		s.nextQueueID++
		s.queueJobs[id] = name
		s.mu.Unlock()

		if !job.OmitLocation {
			w.Header().Set("Location", fmt.Sprintf("%s/queue/item/%s/", s.URL, id))
		}
		status := job.SubmitStatus
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
	}
}

func (s *Server) queueItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	job := s.jobs[s.queueJobs[id]]
	if job == nil {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	body := next(job.QueueBodies, s.queuePolls[id])
	s.queuePolls[id]++
	s.mu.Unlock()

	s.write(w, body)
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	job, name, ok := s.lookup(w, r)
	if !ok {
		return
	}
	key := name + "/" + chi.URLParam(r, "number")

	s.mu.Lock()
	body := next(job.BuildBodies, s.buildPolls[key])
	s.buildPolls[key]++
	s.mu.Unlock()

	s.write(w, body)
}

func (s *Server) write(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, strings.ReplaceAll(body, BaseURLPlaceholder, s.URL))
}

func next(bodies []string, i int) string {
	if len(bodies) == 0 {
		return "{}"
	}
	if i >= len(bodies) {
		return bodies[len(bodies)-1]
	}
	return bodies[i]
}
