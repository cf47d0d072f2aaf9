// Package gateway is the HTTP ingress: it decodes prompt traffic, runs the
// classify, extract, drift, route, dispatch pipeline, and answers with the
// metadata headers callers branch on.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/promptgate/pkg/classifier"
	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/drift"
	"github.com/zen-systems/promptgate/pkg/extractor"
	"github.com/zen-systems/promptgate/pkg/inference"
	"github.com/zen-systems/promptgate/pkg/router"
	"github.com/zen-systems/promptgate/pkg/schema"
)

// Gateway wires the request pipeline behind a gin engine.
type Gateway struct {
	cfg    *config.Config
	cls    *classifier.Classifier
	ext    *extractor.Extractor
	rtr    *router.Router
	log    *zap.Logger
	engine *gin.Engine
}

// New assembles the gateway. The engine is ready to serve after this returns.
func New(cfg *config.Config, cls *classifier.Classifier, ext *extractor.Extractor, rtr *router.Router, log *zap.Logger) *Gateway {
	gin.SetMode(gin.ReleaseMode)

	g := &Gateway{
		cfg:    cfg,
		cls:    cls,
		ext:    ext,
		rtr:    rtr,
		log:    log,
		engine: gin.New(),
	}
	g.engine.Use(gin.Recovery(), g.requestID(), g.logRequests())
	g.engine.POST("/v1/prompts", g.handlePrompt)
	g.engine.GET("/healthz", g.handleHealth)
	return g
}

// Handler exposes the engine for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.engine
}

// Serve runs the listener until ctx is cancelled, then drains in-flight
// requests before returning.
func (g *Gateway) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", g.cfg.Listener.Address, g.cfg.Listener.Port),
		Handler: g.engine,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		g.log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (g *Gateway) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (g *Gateway) handlePrompt(c *gin.Context) {
	requestID := c.GetString(ctxKeyRequestID)
	log := g.log.With(zap.String("request_id", requestID))

	var req schema.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Header(schema.HeaderRequestID, requestID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	prompt := req.Prompt()
	if prompt == "" {
		c.Header(schema.HeaderRequestID, requestID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "no user turn in request"})
		return
	}
	history := req.History()

	// Classifier outages degrade to "no match" so the request can still reach
	// a default target or the provider chain.
	cls, err := g.cls.Classify(c.Request.Context(), prompt, history)
	if err != nil {
		if !errors.Is(err, inference.ErrClassifierUnavailable) {
			log.Error("classify", zap.Error(err))
		} else {
			log.Warn("classifier unavailable, routing unmatched", zap.Error(err))
		}
		cls = nil
	}

	var ext *extractor.Result
	if cls != nil && cls.Match != nil {
		ext, err = g.ext.Extract(c.Request.Context(), prompt, history, cls.Match)
		if err != nil {
			log.Warn("extractor unavailable", zap.Error(err), zap.String("target", cls.Match.ID))
			g.failUpstream(c, requestID, prompt, err)
			return
		}
	}

	sig := drift.Track(req.PreviousTarget, cls, g.cfg.Overrides.ContinuationThreshold)
	decision := g.rtr.Route(requestID, prompt, cls, ext, sig)

	log.Info("routed",
		zap.String("kind", string(decision.Kind)),
		zap.String("target", decision.TargetID),
		zap.Bool("unclassified", decision.Payload.Unclassified),
		zap.Bool("drift", sig.Changed),
	)

	resp, err := g.rtr.Dispatch(c.Request.Context(), decision)
	if err != nil {
		log.Error("dispatch", zap.Error(err))
		var de *router.DispatchError
		kind := schema.ErrorKindUpstream
		if errors.As(err, &de) && de.Kind != "" {
			kind = de.Kind
		}
		c.Header(schema.HeaderRequestID, requestID)
		c.Header(schema.HeaderErrorKind, kind)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream dispatch failed", "error_kind": kind})
		return
	}

	for key, value := range resp.Headers {
		c.Header(key, value)
	}
	c.Header(schema.HeaderRequestID, requestID)
	if decision.Payload.Unclassified {
		c.Header(schema.HeaderUnclassified, "true")
	}
	if sig.Changed {
		c.Header(schema.HeaderDrift, sig.Previous)
	}
	c.Data(resp.Status, "application/json", resp.Body)
}

// failUpstream answers a pipeline collaborator outage, through the
// upstream-failure error target when one is configured.
func (g *Gateway) failUpstream(c *gin.Context, requestID, prompt string, cause error) {
	payload := schema.EnrichedPayload{
		RequestID: requestID,
		Prompt:    prompt,
	}
	if resp, err := g.rtr.DispatchFailure(c.Request.Context(), schema.ErrorKindUpstream, payload); err == nil {
		for key, value := range resp.Headers {
			c.Header(key, value)
		}
		c.Header(schema.HeaderRequestID, requestID)
		c.Data(resp.Status, "application/json", resp.Body)
		return
	}
	c.Header(schema.HeaderRequestID, requestID)
	c.Header(schema.HeaderErrorKind, schema.ErrorKindUpstream)
	c.JSON(http.StatusBadGateway, gin.H{"error": cause.Error(), "error_kind": schema.ErrorKindUpstream})
}
