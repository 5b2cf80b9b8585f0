// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package services

import (
	"context"
)

// AuditCleanupService prunes expired operator audit events.
type AuditCleanupService struct {
	log ContextHub
}

// NewAuditCleanupService wraps an *audit.Logger.
func NewAuditCleanupService(log ContextHub) *AuditCleanupService {
	return &AuditCleanupService{log: log}
}

// Serve implements suture.Service.
func (a *AuditCleanupService) Serve(ctx context.Context) error {
	return a.log.RunWithContext(ctx)
}

func (a *AuditCleanupService) String() string {
	return "audit-cleanup"
}
