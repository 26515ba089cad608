package db

import (
	"context"
	"time"
)

// RfpAnalytics is the daily aggregate: at most one row per RFP per
// calendar date. Counters are integers; averageViewTime is rounded to
// whole seconds. clickThroughRate is stored as an integer percentage.
type RfpAnalytics struct {
	ID               int       `db:"id" json:"id"`
	RfpID            int       `db:"rfp_id" json:"rfpId"`
	Date             time.Time `db:"date" json:"date"`
	TotalViews       int       `db:"total_views" json:"totalViews"`
	UniqueViews      int       `db:"unique_views" json:"uniqueViews"`
	AverageViewTime  int       `db:"average_view_time" json:"averageViewTime"`
	TotalBids        int       `db:"total_bids" json:"totalBids"`
	ClickThroughRate int       `db:"click_through_rate" json:"clickThroughRate"`
}

// RfpViewSession records one view event and feeds the daily aggregate.
type RfpViewSession struct {
	ID              int       `db:"id" json:"id"`
	RfpID           int       `db:"rfp_id" json:"rfpId"`
	UserID          int       `db:"user_id" json:"userId"`
	ViewedAt        time.Time `db:"viewed_at" json:"viewedAt"`
	ViewDuration    int       `db:"view_duration" json:"viewDuration"`
	ConvertedToBid  bool      `db:"converted_to_bid" json:"convertedToBid"`
}

// BoostedAnalytics pairs a featured RFP with its most recent daily row
// (zero-valued when no views were recorded yet).
type BoostedAnalytics struct {
	RfpID            int        `db:"rfp_id" json:"rfpId"`
	Title            string     `db:"title" json:"title"`
	FeaturedAt       *time.Time `db:"featured_at" json:"featuredAt,omitempty"`
	Date             *time.Time `db:"date" json:"date,omitempty"`
	TotalViews       int        `db:"total_views" json:"totalViews"`
	UniqueViews      int        `db:"unique_views" json:"uniqueViews"`
	AverageViewTime  int        `db:"average_view_time" json:"averageViewTime"`
	TotalBids        int        `db:"total_bids" json:"totalBids"`
	ClickThroughRate int        `db:"click_through_rate" json:"clickThroughRate"`
}

func (s *Storage) CreateViewSession(ctx context.Context, v *RfpViewSession) error {
	query := `
        INSERT INTO rfp_view_sessions (rfp_id, user_id, view_duration)
        VALUES ($1, $2, $3)
        RETURNING id, viewed_at`
	return s.db.QueryRowContext(ctx, query, v.RfpID, v.UserID, v.ViewDuration).
		Scan(&v.ID, &v.ViewedAt)
}

// RecordView upserts today's aggregate row in a single statement so that
// concurrent views cannot lose updates. unique_views is the distinct
// viewer count for the day taken from rfp_view_sessions, which must
// already contain the current session.
func (s *Storage) RecordView(ctx context.Context, rfpID, durationSeconds int) error {
	query := `
        INSERT INTO rfp_analytics
            (rfp_id, date, total_views, unique_views, average_view_time, total_bids, click_through_rate)
        VALUES ($1, CURRENT_DATE, 1, 1, $2, 0, 0)
        ON CONFLICT (rfp_id, date) DO UPDATE SET
            total_views = rfp_analytics.total_views + 1,
            unique_views = (
                SELECT COUNT(DISTINCT user_id) FROM rfp_view_sessions
                WHERE rfp_id = $1 AND viewed_at::date = CURRENT_DATE),
            average_view_time = ROUND(
                (rfp_analytics.average_view_time::numeric * rfp_analytics.total_views + $2)
                / (rfp_analytics.total_views + 1))`
	_, err := s.db.ExecContext(ctx, query, rfpID, durationSeconds)
	return err
}

// RecordBid bumps today's bid counter, recomputes the click-through
// percentage in place, and flags the bidder's latest view session as
// converted.
func (s *Storage) RecordBid(ctx context.Context, rfpID, userID int) error {
	query := `
        INSERT INTO rfp_analytics
            (rfp_id, date, total_views, unique_views, average_view_time, total_bids, click_through_rate)
        VALUES ($1, CURRENT_DATE, 0, 0, 0, 1, 0)
        ON CONFLICT (rfp_id, date) DO UPDATE SET
            total_bids = rfp_analytics.total_bids + 1,
            click_through_rate = CASE
                WHEN rfp_analytics.total_views > 0 THEN
                    ROUND((rfp_analytics.total_bids + 1) * 100.0 / rfp_analytics.total_views)
                ELSE 0
            END`
	if _, err := s.db.ExecContext(ctx, query, rfpID); err != nil {
		return err
	}

	convQuery := `
        UPDATE rfp_view_sessions SET converted_to_bid = TRUE
        WHERE id = (
            SELECT id FROM rfp_view_sessions
            WHERE rfp_id = $1 AND user_id = $2
            ORDER BY viewed_at DESC LIMIT 1)`
	_, err := s.db.ExecContext(ctx, convQuery, rfpID, userID)
	return err
}

// GetBoostedAnalytics returns one row per featured RFP of the owner,
// joined with the latest daily aggregate. RFPs with no recorded views
// come back with zero counters rather than being omitted.
func (s *Storage) GetBoostedAnalytics(ctx context.Context, ownerID int) ([]BoostedAnalytics, error) {
	query := `
        SELECT r.id AS rfp_id, r.title, r.featured_at,
               a.date,
               COALESCE(a.total_views, 0) AS total_views,
               COALESCE(a.unique_views, 0) AS unique_views,
               COALESCE(a.average_view_time, 0) AS average_view_time,
               COALESCE(a.total_bids, 0) AS total_bids,
               COALESCE(a.click_through_rate, 0) AS click_through_rate
        FROM rfps r
        LEFT JOIN LATERAL (
            SELECT * FROM rfp_analytics
            WHERE rfp_id = r.id
            ORDER BY date DESC LIMIT 1
        ) a ON TRUE
        WHERE r.organization_id = $1 AND r.featured = TRUE
        ORDER BY r.featured_at DESC`
	rows := []BoostedAnalytics{}
	err := s.db.SelectContext(ctx, &rows, query, ownerID)
	return rows, err
}
