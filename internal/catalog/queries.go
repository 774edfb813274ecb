package catalog

const productFields = `
	id name brand inStock description gallery
	category { name }
	attributes {
		name
		items { value displayValue }
	}
	price {
		amount
		currency { label symbol }
	}
`

const getCatalogQuery = `
query {
	categories { name }
	products {` + productFields + `}
}`

const getProductQuery = `
query Product($id: String!) {
	product(id: $id) {` + productFields + `}
}`

const createOrderMutation = `
mutation CreateOrder($products: [OrderProductInput!]!) {
	createOrder(products: $products) {
		id
		orderedProducts {
			product { name }
			quantity
			unitPrice
			total
			selectedAttributes { name value }
		}
		total
		createdAt
	}
}`
