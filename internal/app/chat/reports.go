package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/roomhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ReportRoom records an abuse report against roomID. Nothing else happens to
// the room; moderators pick reports up from the store.
func (s *Service) ReportRoom(ctx context.Context, roomID, reporterID primitive.ObjectID, kind, description string) (models.RoomReport, error) {
	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return models.RoomReport{}, err
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return models.RoomReport{}, InvalidFieldValue("type")
	}

	r, err := s.reports.Create(ctx, models.RoomReport{
		RoomID:      roomID,
		ReporterID:  reporterID,
		Type:        kind,
		Description: htmlsanitize.StripTags(description),
	})
	if err != nil {
		return models.RoomReport{}, fmt.Errorf("create report: %w", err)
	}
	s.log.Info("room reported",
		zap.String("room_id", roomID.Hex()),
		zap.String("user_id", reporterID.Hex()),
		zap.String("type", kind))
	return r, nil
}
