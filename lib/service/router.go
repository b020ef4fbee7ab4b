// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meridian-foundation/meridian/lib/codec"
	"github.com/meridian-foundation/meridian/lib/envelope"
	"github.com/meridian-foundation/meridian/lib/netutil"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Handler returns the HTTP surface of the server:
//
//	POST /call     CBOR request envelope in, CBOR response envelope out
//	GET  /list     CBOR array of method names
//	GET  /metrics  Prometheus exposition (only with ServerConfig.Metrics)
//
// Every failure the HTTP layer itself detects (unknown path, wrong
// HTTP method, oversized body, rate limit) is answered with the same
// envelope shape as a failed call. The HTTP status mirrors the
// envelope code.
//
// The engine has no recovery middleware: a method fault panics up to
// net/http, which logs it and aborts only that connection.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(s.requestID)
	engine.POST("/call", s.rateLimit, s.serveCall)
	engine.GET("/list", s.rateLimit, s.serveList)
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	engine.NoRoute(func(c *gin.Context) {
		s.writeEnvelope(c, envelope.NewErrorf(envelope.StatusNotFound, "no route for %s", c.Request.URL.Path))
	})
	engine.NoMethod(func(c *gin.Context) {
		s.writeEnvelope(c, envelope.NewErrorf(envelope.StatusMethodNotAllowed, "%s not allowed on %s", c.Request.Method, c.Request.URL.Path))
	})
	return engine
}

func (s *Server) requestID(c *gin.Context) {
	id := acceptRequestID(c.GetHeader(RequestIDHeader))
	c.Header(RequestIDHeader, id)
	c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))
	c.Next()
}

func (s *Server) rateLimit(c *gin.Context) {
	if s.limited() {
		s.logger.Warn("rate limited",
			"path", c.Request.URL.Path,
			"request_id", RequestIDFromContext(c.Request.Context()),
		)
		s.writeEnvelope(c, envelope.NewError(envelope.StatusTooManyRequests, "rate limit exceeded"))
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) serveCall(c *gin.Context) {
	body, err := netutil.ReadBody(c.Request.Body, s.maxRequestBytes)
	if err != nil {
		if errors.Is(err, netutil.ErrTooLarge) {
			s.writeEnvelope(c, envelope.NewErrorf(envelope.StatusRequestTooLarge, "request body exceeds %d bytes", s.maxRequestBytes))
			return
		}
		s.writeEnvelope(c, envelope.NewErrorf(envelope.StatusBadRequest, "reading request body: %v", err))
		return
	}

	response := s.HandleCall(c.Request.Context(), body, c.GetHeader("Authorization"))
	s.writeEnvelope(c, response)
}

func (s *Server) serveList(c *gin.Context) {
	if s.listRequiresAuth {
		if failure := s.authenticate(c.GetHeader("Authorization"), RequestIDFromContext(c.Request.Context())); failure != nil {
			s.writeEnvelope(c, *failure)
			return
		}
	}

	data, err := codec.Marshal(s.List())
	if err != nil {
		s.writeEnvelope(c, envelope.NewErrorf(envelope.StatusInternalServerError, "encoding method list: %v", err))
		return
	}
	c.Data(http.StatusOK, codec.ContentType, data)
}

// writeEnvelope encodes response as the body with a matching HTTP
// status.
func (s *Server) writeEnvelope(c *gin.Context, response envelope.Response) {
	data, err := response.Encode()
	if err != nil {
		s.logger.Error("encoding response envelope", "code", response.Code, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(httpStatus(response), codec.ContentType, data)
}

// httpStatus maps an envelope code onto an HTTP status that can carry
// a body. Methods may return any code; informational, bodyless, and
// out-of-range codes fall back to 200 or 500 according to the
// envelope's success flag.
func httpStatus(response envelope.Response) int {
	code := response.Code
	if code >= 200 && code <= 599 && code != http.StatusNoContent && code != http.StatusNotModified {
		return code
	}
	if response.Success {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
