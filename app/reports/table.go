package reports

import "fmt"

// Field is one cell of a row, labelled with its column.
type Field struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// Row is an ordered mapping of column to value.
type Row []Field

// Value returns the value of column, or nil.
func (r Row) Value(column string) any {
	for _, f := range r {
		if f.Column == column {
			return f.Value
		}
	}
	return nil
}

// Table is the format-neutral shape handed to report sinks.
type Table struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (t *Table) add(values ...any) {
	row := make(Row, len(t.Columns))
	for i, column := range t.Columns {
		row[i] = Field{Column: column}
		if i < len(values) {
			row[i].Value = values[i]
		}
	}
	t.Rows = append(t.Rows, row)
}

const (
	ColCategory = "Categoría"
	ColProduct  = "Producto"
	ColQuantity = "Cantidad"
	ColOrder    = "Pedido"
	ColCustomer = "Cliente"
	ColCommune  = "Comuna"
	ColAddress  = "Dirección"
	ColPhone    = "Teléfono"
	ColUnit     = "Unidad"
)

// Table flattens the list into one row per product, grouped by category.
func (l *PurchasingList) Table() Table {
	t := Table{
		Name:    "Lista de Compras",
		Title:   fmt.Sprintf("Lista de Compras - %s", l.Date),
		Columns: []string{ColCategory, ColProduct, ColQuantity},
		Rows:    []Row{},
	}
	for _, g := range l.Groups {
		for _, item := range g.Items {
			t.add(g.Category, item.Product, item.Quantity)
		}
	}
	return t
}

// Table flattens the list into one row per line item, orders kept together.
func (l *AssemblyList) Table() Table {
	t := Table{
		Name:    "Pedidos para Armar",
		Title:   fmt.Sprintf("Pedidos para Armar - %s (%d pedidos)", l.Date, len(l.Orders)),
		Columns: []string{ColOrder, ColCustomer, ColCommune, ColAddress, ColPhone, ColProduct, ColQuantity, ColUnit},
		Rows:    []Row{},
	}
	for _, o := range l.Orders {
		for _, item := range o.Items {
			t.add(o.OrderNumber, o.Customer, o.Commune, o.Address, o.Phone, item.Product, item.Quantity, item.Unit)
		}
	}
	return t
}
