package enums

import "slices"

// NotificationType is the kind of inbox entry a user receives.
type NotificationType string

const (
	NotificationTypeOrderConfirmation NotificationType = "order_confirmation"
	NotificationTypePickupReminder    NotificationType = "pickup_reminder"
	NotificationTypeNewBag            NotificationType = "new_bag"
	NotificationTypeOrderUpdate       NotificationType = "order_update"
)

var notificationTypes = []NotificationType{
	NotificationTypeOrderConfirmation,
	NotificationTypePickupReminder,
	NotificationTypeNewBag,
	NotificationTypeOrderUpdate,
}

func (n NotificationType) IsValid() bool { return slices.Contains(notificationTypes, n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return member(notificationTypes, "notification type", value)
}
