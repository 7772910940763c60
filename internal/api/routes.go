package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prediction-service/internal/model"
	"prediction-service/internal/predict"
)

// Config defines server dependencies.
type Config struct {
	UploadDir         string
	AllowedExtensions []string
	AllowedOrigins    []string
	MaxUploadBytes    int64
}

// Server wires HTTP handlers with the prediction service.
type Server struct {
	// service is nil when the model failed to load at startup.
	service        *predict.Service
	uploadDir      string
	allowedExt     map[string]struct{}
	extList        []string
	allowedOrigins []string
	maxUpload      int64
}

const defaultMaxUpload = 16 << 20

// NewServer constructs the API server. A nil service is accepted: the
// process keeps running and prediction endpoints answer 500.
func NewServer(cfg Config, service *predict.Service) (*Server, error) {
	if strings.TrimSpace(cfg.UploadDir) == "" {
		return nil, errors.New("upload dir required")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	var extList []string
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := allowed[ext]; !ok {
			extList = append(extList, ext)
		}
		allowed[ext] = struct{}{}
	}
	if len(allowed) == 0 {
		return nil, errors.New("at least one allowed extension required")
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	if service == nil {
		logrus.Warn("starting without a model; prediction endpoints will fail")
	}

	return &Server{
		service:        service,
		uploadDir:      cfg.UploadDir,
		allowedExt:     allowed,
		extList:        extList,
		allowedOrigins: cfg.AllowedOrigins,
		maxUpload:      maxUpload,
	}, nil
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()
	r.MaxMultipartMemory = s.maxUpload

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowCredentials = true
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsCfg.ExposeHeaders = []string{requestIDHeader}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))
	r.Use(requestID())

	r.GET("/health", s.handleHealth)
	r.GET("/schema", s.handleSchema)
	r.POST("/predict", s.handlePredict)
	r.POST("/predict_single", s.handlePredictSingle)

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", ModelLoaded: s.service != nil})
}

func (s *Server) handleSchema(c *gin.Context) {
	if s.service == nil {
		s.renderError(c, predict.ErrModelNotLoaded)
		return
	}
	c.JSON(http.StatusOK, SchemaFromModel(s.service.Schema()))
}

func (s *Server) handlePredict(c *gin.Context) {
	if s.service == nil {
		s.renderError(c, predict.ErrModelNotLoaded)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.renderError(c, &predict.Error{
				Code:    http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("file exceeds the %d byte upload limit", tooLarge.Limit),
			})
			return
		}
		s.renderError(c, predict.BadRequest("no file sent"))
		return
	}
	defer func() {
		if err := form.RemoveAll(); err != nil {
			logrus.WithError(err).Warn("remove multipart temp files")
		}
	}()

	files := form.File["file"]
	if len(files) == 0 {
		// a part named "file" with an empty filename is parsed as a plain value
		if _, ok := form.Value["file"]; ok {
			s.renderError(c, predict.BadRequest("no file selected"))
			return
		}
		s.renderError(c, predict.BadRequest("no file sent"))
		return
	}
	if len(files) > 1 {
		s.renderError(c, predict.BadRequest("only one file can be uploaded per request"))
		return
	}
	header := files[0]
	if strings.TrimSpace(header.Filename) == "" {
		s.renderError(c, predict.BadRequest("no file selected"))
		return
	}
	if !s.allowedFile(header.Filename) {
		s.renderError(c, predict.BadRequest(fmt.Sprintf("file type not allowed, allowed extensions: %s", strings.Join(s.extList, ", "))))
		return
	}

	start := time.Now()
	path, cleanup, err := saveFormFile(header, s.uploadDir)
	if err != nil {
		s.renderError(c, predict.Internal("error processing file", err))
		return
	}
	defer cleanup()

	table, err := predict.ReadCSVFile(path)
	if err != nil {
		s.renderError(c, predict.Internal("error processing file", err))
		return
	}

	out, err := s.service.PredictBatch(table)
	if err != nil {
		s.renderError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"request_id": requestIDFrom(c),
		"filename":   header.Filename,
		"rows":       out.Statistics.TotalPredictions,
		"positive":   out.Statistics.PositivePredictions,
		"duration":   time.Since(start),
	}).Info("batch scored")

	c.JSON(http.StatusOK, BatchFromResult(out))
}

func (s *Server) handlePredictSingle(c *gin.Context) {
	if s.service == nil {
		s.renderError(c, predict.ErrModelNotLoaded)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			s.renderError(c, predict.BadRequest("no data provided"))
		} else {
			s.renderError(c, predict.BadRequest(fmt.Sprintf("invalid JSON payload: %v", err)))
		}
		return
	}

	result, err := s.service.PredictSingle(model.Record(payload))
	if err != nil {
		s.renderError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"request_id":  requestIDFrom(c),
		"prediction":  result.Prediction,
		"probability": result.Probability,
	}).Debug("record scored")

	c.JSON(http.StatusOK, SingleFromResult(*result))
}

func (s *Server) allowedFile(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := s.allowedExt[ext]
	return ok
}

func (s *Server) renderError(c *gin.Context, err error) {
	e := predict.Wrap(err)
	entry := logrus.WithFields(logrus.Fields{
		"request_id": requestIDFrom(c),
		"path":       c.FullPath(),
		"status":     e.Code,
	})
	if e.Code >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithField("reason", e.Message).Warn("request rejected")
	}
	c.JSON(e.Code, ErrorFromError(e))
}
