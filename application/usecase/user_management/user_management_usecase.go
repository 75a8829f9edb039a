package user_management

import (
	"context"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
)

type UserManagementUseCaseImpl struct {
	createUserUseCase    *CreateUserUseCase
	getUserDetailUseCase *GetUserDetailUseCase
	updateUserUseCase    *UpdateUserUseCase
	deleteUserUseCase    *DeleteUserUseCase
	listUsersUseCase     *ListUsersUseCase
	assignRolesUseCase   *AssignRolesUseCase
}

func NewUserManagementUseCase(
	userRepo outbound.UserRepository,
	passwordSvc outbound.PasswordService,
) inbound.UserManagementUseCase {
	return &UserManagementUseCaseImpl{
		createUserUseCase:    NewCreateUserUseCase(userRepo, passwordSvc),
		getUserDetailUseCase: NewGetUserDetailUseCase(userRepo),
		updateUserUseCase:    NewUpdateUserUseCase(userRepo, passwordSvc),
		deleteUserUseCase:    NewDeleteUserUseCase(userRepo),
		listUsersUseCase:     NewListUsersUseCase(userRepo),
		assignRolesUseCase:   NewAssignRolesUseCase(userRepo),
	}
}

func (uc *UserManagementUseCaseImpl) CreateUser(ctx context.Context, req inbound.CreateUserRequest) (*inbound.UserDTO, error) {
	return uc.createUserUseCase.Execute(ctx, req)
}

func (uc *UserManagementUseCaseImpl) GetUserDetail(ctx context.Context, userID int64) (*inbound.UserDTO, error) {
	return uc.getUserDetailUseCase.Execute(ctx, userID)
}

func (uc *UserManagementUseCaseImpl) UpdateUser(ctx context.Context, userID int64, req inbound.UpdateUserRequest) (*inbound.UserDTO, error) {
	return uc.updateUserUseCase.Execute(ctx, userID, req)
}

func (uc *UserManagementUseCaseImpl) DeleteUser(ctx context.Context, userID int64) error {
	return uc.deleteUserUseCase.Execute(ctx, userID)
}

func (uc *UserManagementUseCaseImpl) ListUsers(ctx context.Context, req inbound.ListUsersRequest) (*inbound.ListUsersResponse, error) {
	return uc.listUsersUseCase.Execute(ctx, req)
}

func (uc *UserManagementUseCaseImpl) AssignRoles(ctx context.Context, userID int64, req inbound.AssignRolesRequest) (*inbound.UserDTO, error) {
	return uc.assignRolesUseCase.Execute(ctx, userID, req)
}
