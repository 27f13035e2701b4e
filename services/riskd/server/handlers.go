package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"lendingrisk/native/lending"
	"lendingrisk/observability"
)

// stampEpoch fills a missing epoch from the route and rejects a conflicting
// one.
func stampEpoch(epoch *uint64, route uint64, what string) error {
	switch *epoch {
	case 0:
		*epoch = route
	case route:
	default:
		return fmt.Errorf("%w: %s at epoch %d, route epoch %d", lending.ErrEpochMismatch, what, *epoch, route)
	}
	return nil
}

func (s *Server) putReserves(w http.ResponseWriter, r *http.Request) {
	epoch, err := epochParam(r)
	if err != nil {
		s.fail(w, "put_reserves", err)
		return
	}
	var reserves []lending.ReserveSnapshot
	if err := decodeJSON(w, r, s.maxBodyBytes, &reserves); err != nil {
		s.fail(w, "put_reserves", err)
		return
	}
	if len(reserves) == 0 {
		s.fail(w, "put_reserves", fmt.Errorf("%w: at least one reserve required", errBadRequest))
		return
	}
	seen := make(map[string]struct{}, len(reserves))
	for i := range reserves {
		asset := strings.ToLower(strings.TrimSpace(reserves[i].Asset))
		if asset == "" {
			s.fail(w, "put_reserves", fmt.Errorf("%w: reserve %d has no asset", errBadRequest, i))
			return
		}
		if _, dup := seen[asset]; dup {
			s.fail(w, "put_reserves", fmt.Errorf("%w: duplicate reserve %s", errBadRequest, reserves[i].Asset))
			return
		}
		seen[asset] = struct{}{}
		if err := stampEpoch(&reserves[i].Epoch, epoch, "reserve "+reserves[i].Asset); err != nil {
			s.fail(w, "put_reserves", err)
			return
		}
	}
	market := lending.Market{Epoch: epoch, Reserves: reserves}
	if err := s.store.PutMarket(r.Context(), market); err != nil {
		s.fail(w, "put_reserves", err)
		return
	}
	observability.Snapshots().RecordIngest("market")
	s.logger.Info("market stored", slog.Uint64("epoch", epoch), slog.Int("reserves", len(reserves)))
	writeJSON(w, http.StatusOK, IngestResponse{Epoch: epoch, Reserves: len(reserves)})
}

func (s *Server) putUser(w http.ResponseWriter, r *http.Request) {
	epoch, err := epochParam(r)
	if err != nil {
		s.fail(w, "put_user", err)
		return
	}
	user, err := userParam(r)
	if err != nil {
		s.fail(w, "put_user", err)
		return
	}
	var snapshot lending.UserPositionSnapshot
	if err := decodeJSON(w, r, s.maxBodyBytes, &snapshot); err != nil {
		s.fail(w, "put_user", err)
		return
	}
	switch body := strings.TrimSpace(snapshot.User); {
	case body == "":
		snapshot.User = user
	case !strings.EqualFold(body, user):
		s.fail(w, "put_user", fmt.Errorf("%w: body user %s does not match route user %s", errBadRequest, body, user))
		return
	}
	if err := stampEpoch(&snapshot.Epoch, epoch, "user "+user); err != nil {
		s.fail(w, "put_user", err)
		return
	}
	if snapshot.IsolatedReserve != nil {
		if err := stampEpoch(&snapshot.IsolatedReserve.Epoch, epoch, "isolated reserve"); err != nil {
			s.fail(w, "put_user", err)
			return
		}
	}
	if err := s.store.PutUser(r.Context(), snapshot); err != nil {
		s.fail(w, "put_user", err)
		return
	}
	observability.Snapshots().RecordIngest("user")
	writeJSON(w, http.StatusOK, IngestResponse{Epoch: epoch, User: snapshot.User})
}

func (s *Server) getCaps(w http.ResponseWriter, r *http.Request) {
	epoch, err := epochParam(r)
	if err != nil {
		s.fail(w, "caps", err)
		return
	}
	market, err := s.store.Market(r.Context(), epoch)
	if err != nil {
		s.fail(w, "caps", err)
		return
	}
	reports := s.engine.Params().CapReports(market)
	for _, report := range reports {
		s.metrics.RecordCapUsage(report.Asset, "supply", report.SupplyCap.PercentUsed, report.SupplyCap.IsMaxed)
		s.metrics.RecordCapUsage(report.Asset, "borrow", report.BorrowCap.PercentUsed, report.BorrowCap.IsMaxed)
		s.metrics.RecordCapUsage(report.Asset, "debt_ceiling", report.DebtCeiling.PercentUsed, report.DebtCeiling.IsMaxed)
	}
	writeJSON(w, http.StatusOK, CapsResponse{Epoch: epoch, Reports: reports})
}

// loadPair fetches the market and the user snapshot for the route.
func (s *Server) loadPair(r *http.Request) (lending.Market, lending.UserPositionSnapshot, error) {
	epoch, err := epochParam(r)
	if err != nil {
		return lending.Market{}, lending.UserPositionSnapshot{}, err
	}
	user, err := userParam(r)
	if err != nil {
		return lending.Market{}, lending.UserPositionSnapshot{}, err
	}
	market, err := s.store.Market(r.Context(), epoch)
	if err != nil {
		return lending.Market{}, lending.UserPositionSnapshot{}, err
	}
	snapshot, err := s.store.User(r.Context(), epoch, user)
	if err != nil {
		return lending.Market{}, lending.UserPositionSnapshot{}, err
	}
	return market, snapshot, nil
}

func (s *Server) postDecision(w http.ResponseWriter, r *http.Request) {
	var req lending.ActionRequest
	if err := decodeJSON(w, r, s.maxBodyBytes, &req); err != nil {
		s.fail(w, "decisions", err)
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, "decisions", err)
		return
	}
	market, user, err := s.loadPair(r)
	if err != nil {
		s.fail(w, "decisions", err)
		return
	}
	decision, err := s.engine.Evaluate(market, user, req)
	if err != nil {
		s.fail(w, "decisions", err)
		return
	}
	reason := ""
	if decision.IsBlocked() {
		reason = decision.Reason().String()
	}
	s.metrics.RecordDecision(req.Kind.String(), reason)
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) postProjection(w http.ResponseWriter, r *http.Request) {
	var req ProjectionRequest
	if err := decodeJSON(w, r, s.maxBodyBytes, &req); err != nil {
		s.fail(w, "projections", err)
		return
	}
	if strings.TrimSpace(req.Asset) == "" {
		s.fail(w, "projections", fmt.Errorf("%w: asset required", errBadRequest))
		return
	}
	market, user, err := s.loadPair(r)
	if err != nil {
		s.fail(w, "projections", err)
		return
	}
	projection, err := s.engine.ProjectAsset(market, user, req.Asset, req.DeltaCollateral, req.DeltaDebt)
	if err != nil {
		s.fail(w, "projections", err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

func (s *Server) getYield(w http.ResponseWriter, r *http.Request) {
	market, user, err := s.loadPair(r)
	if err != nil {
		s.fail(w, "yield", err)
		return
	}
	yield, err := s.engine.AggregateYield(market, user)
	if err != nil {
		s.fail(w, "yield", err)
		return
	}
	writeJSON(w, http.StatusOK, yield)
}
