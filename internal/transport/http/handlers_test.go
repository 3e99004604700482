package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"exportgate/internal/auditpack"
	"exportgate/internal/decision"
	"exportgate/internal/document"
	"exportgate/internal/org"
	"exportgate/internal/rules"
	"exportgate/internal/shipment"
	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/audit"
	auditmemory "exportgate/pkg/platform/audit/store/memory"
	"exportgate/pkg/platform/middleware/auth"
)

var testSigningKey = []byte("transport-test-signing-key")

type stubSigner struct{}

func (stubSigner) Sign(context.Context, []byte) ([]byte, error) {
	return []byte("signature"), nil
}

type stubTimestamper struct{}

func (stubTimestamper) Timestamp(context.Context, []byte) (string, error) {
	return "token", nil
}

type HandlersSuite struct {
	suite.Suite
	router http.Handler
	docs   *document.InMemoryStore

	shipmentID id.ShipmentID
	docID      id.DocumentID
	orgID      id.OrganizationID
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	s.docs = document.NewInMemoryStore()
	snapshots := shipment.NewInMemoryReader(s.docs)
	reports := decision.NewInMemoryStore()
	packs := auditpack.NewInMemoryStore()
	orgStore := org.NewInMemoryStore()
	publisher := audit.NewPublisher(auditmemory.NewInMemoryStore())

	catalog, err := rules.NewCatalog()
	s.Require().NoError(err)

	orgs := org.NewService(orgStore)
	documents := document.NewService(s.docs, document.WithAuditPublisher(publisher))
	decisions := decision.NewService(snapshots, reports, catalog,
		decision.WithAuditPublisher(publisher),
		decision.WithOrganizationGate(orgs),
	)
	assembler := auditpack.NewAssembler(snapshots, reports, packs,
		stubSigner{}, stubTimestamper{},
		auditpack.WithAuditPublisher(publisher),
		auditpack.WithOrganizationGate(orgs),
	)

	handler := NewHandler(documents, decisions, assembler, orgs, publisher, nil)
	s.router = NewRouter(handler, auth.New(testSigningKey, nil))

	s.orgID = id.OrganizationID(uuid.New())
	orgStore.Seed(&org.Organization{
		ID:      s.orgID,
		Name:    "Acme Exports",
		Country: "DE",
		Status:  org.StatusActive,
	})

	s.shipmentID = id.ShipmentID(uuid.New())
	snapshots.Seed(&shipment.Shipment{
		ID:                  s.shipmentID,
		OrganizationID:      s.orgID,
		Reference:           "EXP-0001",
		ClassificationCodes: []string{"620342"},
	})

	s.docID = id.DocumentID(uuid.New())
	s.docs.Seed(&document.Document{
		ID:         s.docID,
		ShipmentID: s.shipmentID,
		Type:       id.DocTypeBillOfLading,
		State:      document.StateUploaded,
		Fields: map[string]any{
			"issuer":           "Maersk",
			"container_number": "MSKU1234567",
			"gross_weight_kg":  1000.0,
		},
	})
	s.docs.Seed(&document.Document{
		ID:         id.DocumentID(uuid.New()),
		ShipmentID: s.shipmentID,
		Type:       id.DocTypeCommercialInvoice,
		State:      document.StateValidated,
		Fields: map[string]any{
			"issuer":         "Acme Exports",
			"invoice_number": "INV-1001",
			"currency":       "USD",
		},
	})
	s.docs.Seed(&document.Document{
		ID:         id.DocumentID(uuid.New()),
		ShipmentID: s.shipmentID,
		Type:       id.DocTypePackingList,
		State:      document.StateValidated,
		Fields:     map[string]any{"issuer": "Acme Exports"},
	})
}

func (s *HandlersSuite) token(role id.Role) string {
	claims := auth.Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	s.Require().NoError(err)
	return signed
}

func (s *HandlersSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *HandlersSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	s.decode(rec, &body)
	return body.Error
}

func (s *HandlersSuite) TestHealthzIsOpen() {
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlersSuite) TestAuthentication() {
	path := "/shipments/" + s.shipmentID.String() + "/report"

	s.Run("missing token", func() {
		rec := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("garbage token", func() {
		rec := s.do(http.MethodGet, path, "not-a-jwt", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("token signed with the wrong key", func() {
		claims := auth.Claims{
			Role: string(id.RoleCompliance),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte("another-key"))
		s.Require().NoError(err)

		rec := s.do(http.MethodGet, path, forged, nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("unknown role", func() {
		claims := auth.Claims{
			Role: "superuser",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString(testSigningKey)
		s.Require().NoError(err)

		rec := s.do(http.MethodGet, path, signed, nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *HandlersSuite) TestDocumentTransition() {
	path := "/documents/" + s.docID.String() + "/transitions"

	s.Run("legal transition", func() {
		s.SetupTest()
		path := "/documents/" + s.docID.String() + "/transitions"
		rec := s.do(http.MethodPost, path, s.token(id.RoleReviewer),
			map[string]string{"to": "UNDER_REVIEW"})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var doc struct {
			State string `json:"state"`
		}
		s.decode(rec, &doc)
		s.Equal("UNDER_REVIEW", doc.State)
	})

	s.Run("illegal pair maps to 422", func() {
		s.SetupTest()
		path := "/documents/" + s.docID.String() + "/transitions"
		rec := s.do(http.MethodPost, path, s.token(id.RoleAdmin),
			map[string]string{"to": "APPROVED"})
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		s.Equal("INVALID_TRANSITION", s.errorCode(rec))
	})

	s.Run("insufficient role maps to 403", func() {
		s.SetupTest()
		path := "/documents/" + s.docID.String() + "/transitions"
		rec := s.do(http.MethodPost, path, s.token(id.RoleMember),
			map[string]string{"to": "UNDER_REVIEW"})
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal("FORBIDDEN", s.errorCode(rec))
	})

	s.Run("stale expected state maps to 409", func() {
		s.SetupTest()
		path := "/documents/" + s.docID.String() + "/transitions"
		rec := s.do(http.MethodPost, path, s.token(id.RoleReviewer),
			map[string]string{"expected_state": "DRAFT", "to": "UPLOADED"})
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal("CONFLICT", s.errorCode(rec))
	})

	s.Run("unknown state string maps to 400", func() {
		rec := s.do(http.MethodPost, path, s.token(id.RoleReviewer),
			map[string]string{"to": "TELEPORTED"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown document maps to 404", func() {
		rec := s.do(http.MethodPost, "/documents/"+uuid.NewString()+"/transitions",
			s.token(id.RoleReviewer), map[string]string{"to": "UNDER_REVIEW"})
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed document id maps to 400", func() {
		rec := s.do(http.MethodPost, "/documents/not-a-uuid/transitions",
			s.token(id.RoleReviewer), map[string]string{"to": "UNDER_REVIEW"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown body field rejected", func() {
		rec := s.do(http.MethodPost, path, s.token(id.RoleReviewer),
			map[string]string{"to": "UNDER_REVIEW", "force": "true"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlersSuite) TestDocumentHistory() {
	token := s.token(id.RoleReviewer)
	path := "/documents/" + s.docID.String() + "/transitions"

	rec := s.do(http.MethodPost, path, token, map[string]string{"to": "UNDER_REVIEW"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, path, token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Transitions []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"transitions"`
	}
	s.decode(rec, &body)
	s.Require().Len(body.Transitions, 1)
	s.Equal("UPLOADED", body.Transitions[0].From)
	s.Equal("UNDER_REVIEW", body.Transitions[0].To)
}

func (s *HandlersSuite) TestEvaluateAndReport() {
	token := s.token(id.RoleCompliance)
	base := "/shipments/" + s.shipmentID.String()

	s.Run("report before evaluation is 404", func() {
		rec := s.do(http.MethodGet, base+"/report", token, nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("evaluate returns the report", func() {
		rec := s.do(http.MethodPost, base+"/evaluate", token, nil)
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

		var report struct {
			Decision string `json:"decision"`
			Version  int    `json:"version"`
		}
		s.decode(rec, &report)
		s.Equal("APPROVE", report.Decision)
		s.Equal(1, report.Version)
	})

	s.Run("latest report and history", func() {
		rec := s.do(http.MethodGet, base+"/report", token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.do(http.MethodPost, base+"/evaluate", token, nil)
		s.Require().Equal(http.StatusCreated, rec.Code)

		rec = s.do(http.MethodGet, base+"/report/history", token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var history struct {
			Reports []json.RawMessage `json:"reports"`
		}
		s.decode(rec, &history)
		s.Len(history.Reports, 2)
	})

	s.Run("audit log records the decisions", func() {
		rec := s.do(http.MethodGet, base+"/audit-log", token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var log struct {
			Events []struct {
				Action string `json:"action"`
			} `json:"events"`
		}
		s.decode(rec, &log)
		s.Require().Len(log.Events, 2)
		s.Equal("decision_made", log.Events[0].Action)
	})
}

func (s *HandlersSuite) TestOverride() {
	// Break the shipment so the evaluation rejects.
	s.docs.Clear()
	s.docs.Seed(&document.Document{
		ID:         s.docID,
		ShipmentID: s.shipmentID,
		Type:       id.DocTypeBillOfLading,
		State:      document.StateValidated,
		Fields: map[string]any{
			"issuer":           "Maersk",
			"container_number": "MSKU1234567",
		},
	})

	base := "/shipments/" + s.shipmentID.String()
	rec := s.do(http.MethodPost, base+"/evaluate", s.token(id.RoleCompliance), nil)
	s.Require().Equal(http.StatusCreated, rec.Code)

	s.Run("reviewer cannot override", func() {
		rec := s.do(http.MethodPost, base+"/override", s.token(id.RoleReviewer),
			map[string]string{"reason": "documented exemption on file"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("short reason rejected", func() {
		rec := s.do(http.MethodPost, base+"/override", s.token(id.RoleCompliance),
			map[string]string{"reason": "ok"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("compliance override approves", func() {
		rec := s.do(http.MethodPost, base+"/override", s.token(id.RoleCompliance),
			map[string]string{"reason": "documented exemption on file"})
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

		var report struct {
			Decision string `json:"decision"`
			Override *struct {
				Reason string `json:"reason"`
			} `json:"override"`
		}
		s.decode(rec, &report)
		s.Equal("APPROVE", report.Decision)
		s.Require().NotNil(report.Override)
		s.Equal("documented exemption on file", report.Override.Reason)
	})
}

func (s *HandlersSuite) TestAuditPack() {
	token := s.token(id.RoleCompliance)
	base := "/shipments/" + s.shipmentID.String()

	s.Run("generation needs a report", func() {
		rec := s.do(http.MethodPost, base+"/audit-pack", token, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("generate and fetch", func() {
		rec := s.do(http.MethodPost, base+"/evaluate", token, nil)
		s.Require().Equal(http.StatusCreated, rec.Code)

		rec = s.do(http.MethodPost, base+"/audit-pack", token, nil)
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

		var pack struct {
			Status      string `json:"status"`
			Fingerprint string `json:"fingerprint"`
		}
		s.decode(rec, &pack)
		s.Equal("READY", pack.Status)
		s.NotEmpty(pack.Fingerprint)

		rec = s.do(http.MethodGet, base+"/audit-pack", token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.decode(rec, &pack)
		s.Equal("READY", pack.Status)
	})
}

func (s *HandlersSuite) TestOrganizations() {
	admin := s.token(id.RoleAdmin)

	s.Run("create", func() {
		rec := s.do(http.MethodPost, "/organizations/", admin,
			map[string]string{"name": "Borealis Trading", "country": "NO"})
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

		var o struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		s.decode(rec, &o)
		s.Equal("active", o.Status)

		rec = s.do(http.MethodGet, "/organizations/"+o.ID, admin, nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("non-admin refused", func() {
		rec := s.do(http.MethodPost, "/organizations/", s.token(id.RoleCompliance),
			map[string]string{"name": "Shadow Corp", "country": "NO"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("suspension blocks evaluation", func() {
		rec := s.do(http.MethodPost, "/organizations/"+s.orgID.String()+"/suspend", admin, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		rec = s.do(http.MethodPost, "/shipments/"+s.shipmentID.String()+"/evaluate",
			s.token(id.RoleCompliance), nil)
		s.Equal(http.StatusForbidden, rec.Code)

		rec = s.do(http.MethodPost, "/organizations/"+s.orgID.String()+"/reinstate", admin, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.do(http.MethodPost, "/shipments/"+s.shipmentID.String()+"/evaluate",
			s.token(id.RoleCompliance), nil)
		s.Equal(http.StatusCreated, rec.Code)
	})
}
