package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kpizzy812/futures-scenario-engine/store"
)

// profileResponse flattens a store.Profile's JSON-encoded weights/risk
// blobs into structured fields, mirroring handleGetTactic's decode-then-
// re-shape pattern.
type profileResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	IsDefault bool                  `json:"is_default"`
	IsActive  bool                  `json:"is_active"`
	Weights   store.ProfileWeights  `json:"weights"`
	Risk      store.ProfileRisk     `json:"risk"`
}

func toProfileResponse(p *store.Profile) (profileResponse, error) {
	w, err := p.ParseWeights()
	if err != nil {
		return profileResponse{}, err
	}
	r, err := p.ParseRisk()
	if err != nil {
		return profileResponse{}, err
	}
	return profileResponse{
		ID: p.ID, Name: p.Name, IsDefault: p.IsDefault, IsActive: p.IsActive,
		Weights: w, Risk: r,
	}, nil
}

// validateProfileWeights collects non-fatal warnings, mirroring
// validateTacticConfig's "warn, don't reject" policy for soft issues.
func validateProfileWeights(w store.ProfileWeights) []string {
	var warnings []string
	if w.LeverageDivisor <= 0 {
		warnings = append(warnings, "leverage_divisor should be positive; falling back to the adapter default of 10")
	}
	if w.RecommendedFraction <= 0 || w.RecommendedFraction > 1 {
		warnings = append(warnings, "recommended_fraction should be in (0, 1]")
	}
	if w.MaxSafeLeverageCap <= 0 {
		warnings = append(warnings, "max_safe_leverage_cap should be positive")
	}
	return warnings
}

func (s *Server) handleListProfiles(c *gin.Context) {
	profiles, err := s.Profiles.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list profiles: " + err.Error()})
		return
	}

	out := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp, err := toProfileResponse(p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "corrupt profile " + p.ID + ": " + err.Error()})
			return
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"profiles": out})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.Profiles.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	resp, err := toProfileResponse(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type createProfileRequest struct {
	Name    string               `json:"name" binding:"required"`
	Weights store.ProfileWeights `json:"weights"`
	Risk    store.ProfileRisk    `json:"risk"`
}

func (s *Server) handleCreateProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.Weights == (store.ProfileWeights{}) {
		req.Weights = store.DefaultProfileWeights()
	}
	if req.Risk == (store.ProfileRisk{}) {
		req.Risk = store.DefaultProfileRisk()
	}

	p := &store.Profile{ID: uuid.New().String(), Name: req.Name}
	if err := p.SetWeights(req.Weights); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := p.SetRisk(req.Risk); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.Profiles.Create(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile: " + err.Error()})
		return
	}

	resp := gin.H{"id": p.ID, "message": "profile created successfully"}
	if warnings := validateProfileWeights(req.Weights); len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

type updateProfileRequest struct {
	Name    string               `json:"name"`
	Weights store.ProfileWeights `json:"weights"`
	Risk    store.ProfileRisk    `json:"risk"`
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	id := c.Param("id")

	existing, err := s.Profiles.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if existing.IsDefault {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot modify the system default profile"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	p := &store.Profile{ID: id, Name: req.Name}
	if err := p.SetWeights(req.Weights); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := p.SetRisk(req.Risk); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.Profiles.Update(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile: " + err.Error()})
		return
	}

	resp := gin.H{"message": "profile updated successfully"}
	if warnings := validateProfileWeights(req.Weights); len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteProfile(c *gin.Context) {
	if err := s.Profiles.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete profile: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile deleted successfully"})
}

func (s *Server) handleActivateProfile(c *gin.Context) {
	if err := s.Profiles.SetActive(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate profile: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile activated successfully"})
}
