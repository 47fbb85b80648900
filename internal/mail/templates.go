package mail

import "fmt"

func OrderConfirmation(name, trackingID string) (subject, body string) {
	subject = "Your order has been placed"
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"Thank you for your order. Your tracking code is %s.\n"+
			"Use it to check the status of your order at any time. "+
			"Do not share this code with anyone.\n",
		name, trackingID,
	)
	return subject, body
}

func NewOrderAlert(appURL string, orderID uint, storeName string) (subject, body string) {
	subject = "You have a new order"
	body = fmt.Sprintf(
		"A new order has been placed at %s.\n\n"+
			"View it here: %s/orders/%d\n",
		storeName, appURL, orderID,
	)
	return subject, body
}

func LowStockAlert(productName string, quantity int) (subject, body string) {
	subject = fmt.Sprintf("Low stock: %s", productName)
	body = fmt.Sprintf(
		"Your product %s is running low. Only %d items left in stock.\n",
		productName, quantity,
	)
	return subject, body
}

func AccountConfirmation(appURL, firstName string, merchantID uint) (subject, body string) {
	subject = "Confirm your account"
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"Welcome! Confirm your account by following this link:\n"+
			"%s/api/users/confirm/%d\n",
		firstName, appURL, merchantID,
	)
	return subject, body
}
