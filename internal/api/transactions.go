package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/receipt"
)

type createTransactionRequest struct {
	CustomerName string `json:"customer_name"`
}

type updateTransactionRequest struct {
	CustomerName string `json:"customer_name"`
}

type addLineRequest struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity int64     `json:"quantity"`
}

type updateLineRequest struct {
	Quantity int64 `json:"quantity"`
}

type closeTransactionRequest struct {
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

func (s *Server) listTransactions(c *gin.Context) {
	transactions, err := s.engine.ListTransactions(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func (s *Server) listOpenTransactions(c *gin.Context) {
	transactions, err := s.engine.ListOpenTransactions(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func (s *Server) createTransaction(c *gin.Context) {
	var req createTransactionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	txn, err := s.engine.CreateTransaction(c.Request.Context(), req.CustomerName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (s *Server) getTransaction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	txn, err := s.engine.GetTransaction(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (s *Server) updateTransaction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	txn, err := s.engine.UpdateCustomer(c.Request.Context(), id, req.CustomerName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (s *Server) addLine(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	line, total, err := s.engine.AddLine(c.Request.Context(), id, req.ItemID, req.Quantity)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"line": line, "total": total})
}

func (s *Server) updateLine(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathUUID(c, "lineID")
	if !ok {
		return
	}
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	line, total, err := s.engine.UpdateLineQuantity(c.Request.Context(), id, lineID, req.Quantity)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"line": line, "total": total})
}

func (s *Server) removeLine(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathUUID(c, "lineID")
	if !ok {
		return
	}

	txn, err := s.engine.RemoveLine(c.Request.Context(), id, lineID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (s *Server) closeTransaction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req closeTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	txn, err := s.engine.CloseTransaction(c.Request.Context(), id, req.PaidAmount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.metrics.transactionsClosed.Inc()
	s.metrics.revenue.Add(txn.Total.InexactFloat64())

	if s.cfg.Printing {
		go s.printReceipt(txn)
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction":   txn,
		"change_amount": txn.Payment.Change,
	})
}

func (s *Server) cancelTransaction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	txn, err := s.engine.CancelTransaction(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// printReceipt delivers a receipt to the first discovered printer. Runs
// after the close has committed; failures are logged and never surfaced,
// so a missing printer cannot fail a sale.
func (s *Server) printReceipt(txn *pos.Transaction) {
	r, err := receipt.FromTransaction(txn)
	if err != nil {
		s.log.Warn("receipt build failed", "transaction", txn.ID, "error", err)
		return
	}
	path, err := receipt.FindPrinter()
	if err != nil {
		s.log.Warn("no printer available", "transaction", txn.ID, "error", err)
		return
	}
	if err := receipt.Print(path, r); err != nil {
		s.log.Warn("receipt print failed", "transaction", txn.ID, "printer", path, "error", err)
	}
}
