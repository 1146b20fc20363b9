package reports

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/inkhouse/backoffice/api/responses"
	"github.com/inkhouse/backoffice/api/validators"
	internalreports "github.com/inkhouse/backoffice/internal/reports"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatementXLSX streams the customer's statement workbook. The workbook is
// rendered into memory first so a failure still yields a JSON error.
func StatementXLSX(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.URLParamUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		statement, err := svc.CustomerStatement(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var buf bytes.Buffer
		if err := internalreports.WriteStatementXLSX(&buf, statement); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render statement"))
			return
		}
		filename := fmt.Sprintf("statement-%s-%s.xlsx", customerID, statement.GeneratedAt.Format("20060102"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
