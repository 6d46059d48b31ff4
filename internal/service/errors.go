package service

import "errors"

// 业务错误
// 鉴权/校验类错误均只反馈给操作发起方，不影响其他用户的任何状态
var (
	// 账号
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")

	// 好友请求状态机
	ErrSelfRequest      = errors.New("cannot add yourself as a friend")
	ErrAlreadyFriends   = errors.New("you are already friends")
	ErrDuplicatePending = errors.New("a pending friend request already exists")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotResponder     = errors.New("you are not allowed to respond to this request")
	ErrAlreadyResolved  = errors.New("friend request is not pending")

	// 消息发送/历史查询的授权门
	ErrNotFriends = errors.New("you are not friends with this user")
)
