package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/supplyhub/internal/dispatch"
	"github.com/supplyhub/supplyhub/internal/docnum"
	"github.com/supplyhub/supplyhub/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	docnum.TxSequences
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction. The wrapper
// carries the document sequence port so callers can allocate numbers
// atomically with their writes.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{TxSequences: docnum.Sequences(tx), tx: tx})
	})
}

// lineDetails is the jsonb payload carrying kind-specific sub-records.
type lineDetails struct {
	Custodian       *dispatch.CustodianDetail       `json:"custodian,omitempty"`
	Acknowledgement *dispatch.AcknowledgementDetail `json:"acknowledgement,omitempty"`
	Requisition     *dispatch.RequisitionDetail     `json:"requisition,omitempty"`
	Inspection      *dispatch.InspectionDetail      `json:"inspection,omitempty"`
}

// GetOrder returns the order and its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	const query = `SELECT id, COALESCE(number, ''), supplier_id, order_date, procurement_mode, fund_cluster,
		end_user, department, designation, status, grand_total::text, created_at, updated_at
	FROM purchase_orders WHERE id = $1`

	var (
		po       PurchaseOrder
		number   string
		totalRaw string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&po.ID, &number, &po.SupplierID, &po.OrderDate,
		&po.ProcurementMode, &po.FundCluster, &po.Requester.EndUser, &po.Requester.Department,
		&po.Requester.Designation, &po.Status, &totalRaw, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, fmt.Errorf("orders: get order: %w", err)
	}
	po.Number = docnum.Identifier(number)
	if po.GrandTotal, err = decimal.NewFromString(totalRaw); err != nil {
		return PurchaseOrder{}, fmt.Errorf("orders: parse grand total: %w", err)
	}

	const lineQuery = `SELECT id, order_id, stock_number, unit, description, quantity, unit_cost::text,
		flag_custodian, flag_acknowledgement, flag_requisition, flag_inspection, details
	FROM purchase_order_lines WHERE order_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, lineQuery, id)
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("orders: get lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line    LineItem
			costRaw string
			details []byte
		)
		if err := rows.Scan(&line.ID, &line.OrderID, &line.StockNumber, &line.Unit, &line.Description,
			&line.Quantity, &costRaw, &line.Flags.Custodian, &line.Flags.Acknowledgement,
			&line.Flags.Requisition, &line.Flags.Inspection, &details); err != nil {
			return PurchaseOrder{}, fmt.Errorf("orders: scan line: %w", err)
		}
		if line.UnitCost, err = decimal.NewFromString(costRaw); err != nil {
			return PurchaseOrder{}, fmt.Errorf("orders: parse unit cost: %w", err)
		}
		if len(details) > 0 {
			var d lineDetails
			if err := json.Unmarshal(details, &d); err != nil {
				return PurchaseOrder{}, fmt.Errorf("orders: decode line details: %w", err)
			}
			line.Custodian = d.Custodian
			line.Acknowledgement = d.Acknowledgement
			line.Requisition = d.Requisition
			line.Inspection = d.Inspection
		}
		po.Items = append(po.Items, line)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// OrderListItem is the listing row with supplier name joined in.
type OrderListItem struct {
	ID           int64             `json:"id"`
	Number       docnum.Identifier `json:"number,omitempty"`
	SupplierID   int64             `json:"supplier_id"`
	SupplierName string            `json:"supplier_name"`
	Status       Status            `json:"status"`
	OrderDate    time.Time         `json:"order_date"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status     string
	SupplierID int64
	Search     string
}

// ListOrders returns orders with supplier names, newest first.
func (r *Repository) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]OrderListItem, int, error) {
	countSQL := `SELECT COUNT(*) FROM purchase_orders o WHERE 1=1`
	dataSQL := `SELECT o.id, COALESCE(o.number, ''), o.supplier_id, COALESCE(s.name, '') AS supplier_name,
		o.status, o.order_date, o.grand_total::text, o.created_at
	FROM purchase_orders o
	LEFT JOIN suppliers s ON s.id = o.supplier_id
	WHERE 1=1`

	var clauses string
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		clauses += fmt.Sprintf(" AND o.status = $%d", len(args))
	}
	if filters.SupplierID > 0 {
		args = append(args, filters.SupplierID)
		clauses += fmt.Sprintf(" AND o.supplier_id = $%d", len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		clauses += fmt.Sprintf(" AND o.number ILIKE $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL+clauses, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	dataSQL += clauses + fmt.Sprintf(" ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []OrderListItem
	for rows.Next() {
		var (
			item     OrderListItem
			number   string
			totalRaw string
		)
		if err := rows.Scan(&item.ID, &number, &item.SupplierID, &item.SupplierName,
			&item.Status, &item.OrderDate, &totalRaw, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		item.Number = docnum.Identifier(number)
		if item.GrandTotal, err = decimal.NewFromString(totalRaw); err != nil {
			return nil, 0, fmt.Errorf("orders: parse grand total: %w", err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// ListClassifiedDocs returns an order's classified documents in kind order.
func (r *Repository) ListClassifiedDocs(ctx context.Context, orderID int64) ([]ClassifiedDocument, error) {
	const query = `SELECT id, order_id, kind, number, entity_name, fund_cluster, signatories, items,
		incomplete, missing_roles, created_at, updated_at
	FROM classified_documents WHERE order_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list classified docs: %w", err)
	}
	defer rows.Close()

	var docs []ClassifiedDocument
	for rows.Next() {
		var (
			doc          ClassifiedDocument
			kind         string
			number       string
			signatories  []byte
			items        []byte
			missingRoles []byte
		)
		if err := rows.Scan(&doc.ID, &doc.OrderID, &kind, &number, &doc.Header.EntityName,
			&doc.Header.FundCluster, &signatories, &items, &doc.Header.Incomplete, &missingRoles,
			&doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("orders: scan classified doc: %w", err)
		}
		doc.Header.Kind = dispatch.Kind(kind)
		doc.Header.Number = docnum.Identifier(number)
		if err := json.Unmarshal(signatories, &doc.Header.Signatories); err != nil {
			return nil, fmt.Errorf("orders: decode signatories: %w", err)
		}
		if err := json.Unmarshal(items, &doc.Header.Items); err != nil {
			return nil, fmt.Errorf("orders: decode classified items: %w", err)
		}
		if len(missingRoles) > 0 {
			if err := json.Unmarshal(missingRoles, &doc.Header.MissingRoles); err != nil {
				return nil, fmt.Errorf("orders: decode missing roles: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (tx *txRepo) CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	const query = `INSERT INTO purchase_orders
		(supplier_id, order_date, procurement_mode, fund_cluster, end_user, department, designation, status, grand_total, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	RETURNING id`
	var id int64
	err := tx.tx.QueryRow(ctx, query, po.SupplierID, po.OrderDate, po.ProcurementMode, po.FundCluster,
		po.Requester.EndUser, po.Requester.Department, po.Requester.Designation,
		string(po.Status), po.GrandTotal.String()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: create order: %w", err)
	}
	return id, nil
}

func (tx *txRepo) UpdateOrderHeader(ctx context.Context, po PurchaseOrder) error {
	const query = `UPDATE purchase_orders SET supplier_id = $1, order_date = $2, procurement_mode = $3,
		fund_cluster = $4, end_user = $5, department = $6, designation = $7, grand_total = $8, updated_at = NOW()
	WHERE id = $9`
	_, err := tx.tx.Exec(ctx, query, po.SupplierID, po.OrderDate, po.ProcurementMode, po.FundCluster,
		po.Requester.EndUser, po.Requester.Department, po.Requester.Designation, po.GrandTotal.String(), po.ID)
	if err != nil {
		return fmt.Errorf("orders: update order: %w", err)
	}
	return nil
}

func (tx *txRepo) SetNumber(ctx context.Context, id int64, number docnum.Identifier) error {
	var num pgtype.Text
	if number != "" {
		num = pgtype.Text{String: string(number), Valid: true}
	}
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET number = $1, updated_at = NOW() WHERE id = $2`, num, id)
	if err != nil {
		return fmt.Errorf("orders: set number: %w", err)
	}
	return nil
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("orders: update status: %w", err)
	}
	return nil
}

func (tx *txRepo) InsertLine(ctx context.Context, line LineItem) (int64, error) {
	details, err := json.Marshal(lineDetails{
		Custodian:       line.Custodian,
		Acknowledgement: line.Acknowledgement,
		Requisition:     line.Requisition,
		Inspection:      line.Inspection,
	})
	if err != nil {
		return 0, fmt.Errorf("orders: encode line details: %w", err)
	}
	const query = `INSERT INTO purchase_order_lines
		(order_id, stock_number, unit, description, quantity, unit_cost,
		 flag_custodian, flag_acknowledgement, flag_requisition, flag_inspection, details)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`
	var id int64
	err = tx.tx.QueryRow(ctx, query, line.OrderID, line.StockNumber, line.Unit, line.Description,
		line.Quantity, line.UnitCost.String(), line.Flags.Custodian, line.Flags.Acknowledgement,
		line.Flags.Requisition, line.Flags.Inspection, details).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: insert line: %w", err)
	}
	return id, nil
}

func (tx *txRepo) DeleteLines(ctx context.Context, orderID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("orders: delete lines: %w", err)
	}
	return nil
}

func (tx *txRepo) InsertClassifiedDoc(ctx context.Context, doc ClassifiedDocument) (int64, error) {
	signatories, items, missing, err := encodeHeader(doc.Header)
	if err != nil {
		return 0, err
	}
	const query = `INSERT INTO classified_documents
		(order_id, kind, number, entity_name, fund_cluster, signatories, items, incomplete, missing_roles, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	RETURNING id`
	var id int64
	err = tx.tx.QueryRow(ctx, query, doc.OrderID, string(doc.Header.Kind), string(doc.Header.Number),
		doc.Header.EntityName, doc.Header.FundCluster, signatories, items, doc.Header.Incomplete, missing).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: insert classified doc: %w", err)
	}
	return id, nil
}

func (tx *txRepo) UpdateClassifiedDoc(ctx context.Context, doc ClassifiedDocument) error {
	signatories, items, missing, err := encodeHeader(doc.Header)
	if err != nil {
		return err
	}
	const query = `UPDATE classified_documents SET entity_name = $1, fund_cluster = $2, signatories = $3,
		items = $4, incomplete = $5, missing_roles = $6, updated_at = NOW()
	WHERE id = $7`
	_, err = tx.tx.Exec(ctx, query, doc.Header.EntityName, doc.Header.FundCluster, signatories, items,
		doc.Header.Incomplete, missing, doc.ID)
	if err != nil {
		return fmt.Errorf("orders: update classified doc: %w", err)
	}
	return nil
}

func encodeHeader(header dispatch.Header) (signatories, items, missing []byte, err error) {
	if signatories, err = json.Marshal(header.Signatories); err != nil {
		return nil, nil, nil, fmt.Errorf("orders: encode signatories: %w", err)
	}
	if items, err = json.Marshal(header.Items); err != nil {
		return nil, nil, nil, fmt.Errorf("orders: encode classified items: %w", err)
	}
	if missing, err = json.Marshal(header.MissingRoles); err != nil {
		return nil, nil, nil, fmt.Errorf("orders: encode missing roles: %w", err)
	}
	return signatories, items, missing, nil
}
